package inference

import (
	"fmt"
	"os"
	"strings"

	"github.com/csadorf/herring/internal/device"
	"github.com/csadorf/herring/internal/forest"
	"github.com/csadorf/herring/internal/logger"
	"github.com/csadorf/herring/internal/model"
	"github.com/csadorf/herring/pkg/fcf"
)

type Loader struct {
	// Tolerance caps the relative error accepted when narrowing
	// thresholds to float32.
	Tolerance float64
	// Workers bounds host-side evaluation parallelism.
	Workers int

	Log logger.Logger
}

// Load builds an engine from either a packed container or a JSON model
// document, sniffed by magic rather than extension. The forest is
// placed on dev before Load returns.
func (l Loader) Load(path string, dev device.ID) (Engine, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("model path is required")
	}
	log := l.Log
	if log == nil {
		log = logger.Default()
	}
	opts := forest.Options{Tolerance: l.Tolerance, Workers: l.Workers}

	packed, err := isContainer(path)
	if err != nil {
		return nil, err
	}

	var h forest.Handle
	if packed {
		h, err = forest.ReadFile(path, dev, opts)
	} else {
		var m *model.Model
		m, err = model.LoadFile(path)
		if err == nil {
			h, err = forest.New(m, dev, opts)
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info("forest loaded",
		"path", path,
		"trees", h.Trees(),
		"features", h.Features(),
		"groups", h.Groups(),
		"specialization", h.Key().String(),
		"device", dev.String(),
	)
	return &engineImpl{handle: h, log: log}, nil
}

func isContainer(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, _ := f.Read(magic)
	return n == 4 && string(magic) == fcf.MagicFCF, nil
}
