package main

import (
	"os"

	"github.com/urfave/cli/v3"

	"github.com/csadorf/herring/internal/logger"
)

var (
	modelPath  string
	deviceSpec string
	tolerance  float64
	workers    int64
	logLevel   string
	logFormat  string
	debug      bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to a model document (.json) or packed container (.fcf)",
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "device",
			Aliases:     []string{"d"},
			Usage:       "evaluation device (host, gpu, gpu:N)",
			Value:       "host",
			Destination: &deviceSpec,
		},
		&cli.Float64Flag{
			Name:        "tolerance",
			Usage:       "relative error accepted when narrowing thresholds to float32",
			Destination: &tolerance,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "host evaluation workers (0 = one per CPU)",
			Destination: &workers,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func newLog() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "pretty":
		return logger.Pretty(os.Stderr, level)
	default:
		return logger.Text(os.Stderr, level)
	}
}
