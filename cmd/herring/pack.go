package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/forest"
	"github.com/csadorf/herring/internal/model"
)

func packCmd() *cli.Command {
	var outputPath string

	return &cli.Command{
		Name:  "pack",
		Usage: "Pack a JSON model document into an .fcf container",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output .fcf path",
				Required:    true,
				Destination: &outputPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			log := newLog()

			m, err := model.LoadFile(modelPath)
			if err != nil {
				return err
			}
			h, err := forest.New(m, device.CPU(), forest.Options{
				Tolerance: tolerance,
				Workers:   int(workers),
			})
			if err != nil {
				return err
			}
			defer h.Close()

			if err := forest.WriteFile(h, outputPath); err != nil {
				return fmt.Errorf("write container: %w", err)
			}
			log.Info("container written",
				"path", outputPath,
				"trees", h.Trees(),
				"specialization", h.Key().String(),
			)
			return nil
		},
	}
}
