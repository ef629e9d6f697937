package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/inference"
	"github.com/csadorf/herring/pkg/fcf"
)

func inspectCmd() *cli.Command {
	var showSections bool

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a model document or .fcf container",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.BoolFlag{
				Name:        "sections",
				Usage:       "list container sections (.fcf only)",
				Destination: &showSections,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())

			eng, err := inference.Loader{Tolerance: tolerance, Log: newLog()}.Load(modelPath, device.CPU())
			if err != nil {
				return err
			}
			defer eng.Close()

			info := eng.Describe()
			fmt.Printf("model:          %s\n", modelPath)
			fmt.Printf("trees:          %d\n", info.Trees)
			fmt.Printf("features:       %d\n", info.Features)
			fmt.Printf("groups:         %d\n", info.Groups)
			fmt.Printf("aggregation:    %s\n", info.Aggregation)
			fmt.Printf("specialization: %s\n", info.Specialization)

			if showSections {
				return printSections(modelPath)
			}
			return nil
		},
	}
}

func printSections(path string) error {
	f, err := fcf.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		// Not a container; nothing more to show.
		return nil
	}
	defer f.Close()

	fmt.Printf("format:         FCF v%d.%d\n", f.Header.Major, f.Header.Minor)
	for _, s := range f.Sections {
		fmt.Printf("section %-8s offset=%-10d size=%d\n", sectionName(s.Kind), s.Offset, s.Size)
	}
	return nil
}

func sectionName(kind uint32) string {
	switch kind {
	case fcf.SectionInfo:
		return "info"
	case fcf.SectionRoots:
		return "roots"
	case fcf.SectionValues:
		return "values"
	case fcf.SectionMeta:
		return "meta"
	case fcf.SectionOffsets:
		return "offsets"
	default:
		return fmt.Sprintf("kind(%d)", kind)
	}
}
