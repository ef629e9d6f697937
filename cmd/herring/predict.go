package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/inference"
)

func predictCmd() *cli.Command {
	var (
		inputPath  string
		outputPath string
		hasHeader  bool
	)

	return &cli.Command{
		Name:  "predict",
		Usage: "Evaluate a batch of CSV rows against a model",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "CSV file of feature rows (- for stdin)",
				Value:       "-",
				Destination: &inputPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output CSV file (- for stdout)",
				Value:       "-",
				Destination: &outputPath,
			},
			&cli.BoolFlag{
				Name:        "header",
				Usage:       "skip the first input row",
				Destination: &hasHeader,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
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

			features := eng.Describe().Features
			rows, numRows, err := readFeatureCSV(inputPath, features, hasHeader)
			if err != nil {
				return err
			}

			res, err := eng.Predict(ctx, &inference.Request{Rows: rows, NumRows: numRows})
			if err != nil {
				return err
			}
			log.Info("batch complete",
				"rows", res.Stats.Rows,
				"duration", res.Stats.Duration,
				"rows_per_sec", res.Stats.RowsPerSec,
			)

			return writePredictionCSV(outputPath, res.Predictions, res.Groups)
		},
	}
}

func readFeatureCSV(path string, features int, hasHeader bool) ([]float32, int, error) {
	var src io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		defer f.Close()
		src = f
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = features

	var rows []float32
	numRows := 0
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		line++
		if hasHeader && line == 1 {
			continue
		}
		for col, cell := range record {
			v, err := parseFeature(cell)
			if err != nil {
				return nil, 0, fmt.Errorf("row %d column %d: %w", line, col+1, err)
			}
			rows = append(rows, v)
		}
		numRows++
	}
	return rows, numRows, nil
}

// parseFeature reads one CSV cell. Empty cells are missing values and
// follow the model's default-child routing.
func parseFeature(cell string) (float32, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return float32(math.NaN()), nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

func writePredictionCSV(path string, preds []float32, groups int) error {
	var dst io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}

	w := csv.NewWriter(dst)
	record := make([]string, groups)
	for i := 0; i < len(preds); i += groups {
		for g := 0; g < groups; g++ {
			record[g] = strconv.FormatFloat(float64(preds[i+g]), 'g', -1, 32)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
