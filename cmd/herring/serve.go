package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/csadorf/herring/internal/api"
	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/inference"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		modelID     string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the REST inference API",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "model-id",
				Usage:       "model identifier exposed by the API",
				Value:       "herring",
				Destination: &modelID,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, LoadConfig(), &addr)
			log := newLog()

			dev, err := device.Parse(deviceSpec)
			if err != nil {
				return err
			}
			eng, err := inference.Loader{
				Tolerance: tolerance,
				Workers:   int(workers),
				Log:       log,
			}.Load(modelPath, dev)
			if err != nil {
				return err
			}
			defer eng.Close()

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			api.NewServer(eng, modelID, log).Register(e)

			log.Info("starting server", "address", addr, "model", modelID, "device", dev.String())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
