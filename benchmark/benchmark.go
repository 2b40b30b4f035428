// Package benchmark sequences the conversion measurements and emits the
// comparative report.
package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"

	"github.com/afairless/grayscale-bench/convert"
	"github.com/afairless/grayscale-bench/images"
	"github.com/afairless/grayscale-bench/jit"
	"github.com/afairless/grayscale-bench/profiler"
)

// equivalenceTolerance is the largest per-pixel difference accepted between
// variants. The three formulations share one formula but may associate the
// float arithmetic differently, which can flip a rounding at the .5
// boundary by one level.
const equivalenceTolerance = 1

// Converter pairs a report label with a conversion function.
type Converter struct {
	Label string
	Fn    convert.Func
}

// Config configures a benchmark suite. Zero values select working
// defaults.
type Config struct {
	// Cache is the compilation cache shared by the compiled converters.
	Cache *jit.Cache
	// Harness performs the individual measurements.
	Harness *profiler.Harness
	// Out receives the report lines (default os.Stdout).
	Out io.Writer
	// OutputDir receives grayscale images and result files.
	OutputDir string
	// SaveImages writes each image's grayscale result to OutputDir.
	SaveImages bool
	// Log receives diagnostics; report lines never go through it.
	Log *logrus.Logger
}

// Suite drives the fixed measurement sequence: every converter against
// every image, in order. The image order is what separates the cold run
// (first image, compilation cost included) from the warm run (later
// images, compiled programs reused). Measurements are strictly sequential;
// nothing else computes while one is in flight.
type Suite struct {
	converters []Converter
	cache      *jit.Cache
	harness    *profiler.Harness
	out        io.Writer
	outputDir  string
	saveImages bool
	log        *logrus.Logger
	results    []profiler.Record
}

// NewSuite creates a suite with the three conversion variants in their
// fixed measurement order: vectorized first (the baseline every other
// variant is checked against), then the two compiled variants.
func NewSuite(cfg Config) *Suite {
	if cfg.Cache == nil {
		cfg.Cache = jit.NewCache()
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Harness == nil {
		cfg.Harness = profiler.New(profiler.Options{}, cfg.Log)
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}

	return &Suite{
		converters: []Converter{
			{Label: "vectorized", Fn: convert.Vectorized},
			{Label: "compiled-vectorized", Fn: jit.Compiled(cfg.Cache, jit.GraphCompiler{})},
			{Label: "compiled-loop", Fn: jit.Compiled(cfg.Cache, jit.LoopCompiler{})},
		},
		cache:      cfg.Cache,
		harness:    cfg.Harness,
		out:        cfg.Out,
		outputDir:  cfg.OutputDir,
		saveImages: cfg.SaveImages,
		log:        cfg.Log,
	}
}

// Run measures every converter against every image path, in order, printing
// one report line per (converter, image) pair. It stops at the first
// failure: a broken conversion or a variant disagreement invalidates the
// whole comparison, so nothing is skipped silently.
func (s *Suite) Run(paths []string) error {
	if len(paths) == 0 {
		return errors.New("no input images")
	}

	for _, path := range paths {
		img, err := images.Load(path)
		if err != nil {
			return err
		}
		if err := convert.ValidateImage(img); err != nil {
			return errors.Wrapf(err, "invalid input image %s", path)
		}
		id := filepath.Base(path)

		fmt.Fprintln(s.out)

		var reference *tensor.Dense
		for _, c := range s.converters {
			out, rec, err := s.harness.Measure(c.Label, id, c.Fn, img)
			if err != nil {
				return err
			}

			if reference == nil {
				reference = out
			} else if err := equivalent(reference, out); err != nil {
				return errors.Wrapf(err, "%s disagrees with %s on %s",
					c.Label, s.converters[0].Label, id)
			}

			s.results = append(s.results, rec)
			s.report(rec)
		}

		if s.saveImages {
			if err := s.saveGrayscale(id, reference); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Suite) report(rec profiler.Record) {
	label := rec.Function + ":"
	if rec.MemorySampled {
		fmt.Fprintf(s.out, "%-21s %s  %.5f seconds  %d bytes allocated  peak %s\n",
			label, rec.Image, rec.Elapsed.Seconds(), rec.AllocBytes,
			profiler.FormatBytes(rec.PeakBytes))
		return
	}
	fmt.Fprintf(s.out, "%-21s %s  %.5f seconds  (memory not sampled)\n",
		label, rec.Image, rec.Elapsed.Seconds())
}

func (s *Suite) saveGrayscale(id string, gray *tensor.Dense) error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	name := strings.TrimSuffix(id, filepath.Ext(id)) + "_bw.jpg"
	return images.SaveGray(filepath.Join(s.outputDir, name), gray)
}

// Results returns a copy of the measurement records collected so far.
func (s *Suite) Results() []profiler.Record {
	out := make([]profiler.Record, len(s.results))
	copy(out, s.results)
	return out
}

// SaveResults writes the collected records to the output directory as a
// timestamped JSON file plus a CSV summary.
func (s *Suite) SaveResults() error {
	if len(s.results) == 0 {
		return errors.New("no results to save")
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	stamp := time.Now().Format("2006-01-02_15-04-05")

	jsonPath := filepath.Join(s.outputDir, fmt.Sprintf("results_%s.json", stamp))
	data, err := json.MarshalIndent(s.results, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling results")
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return errors.Wrap(err, "writing results file")
	}

	csvPath := filepath.Join(s.outputDir, fmt.Sprintf("results_%s.csv", stamp))
	f, err := os.Create(csvPath)
	if err != nil {
		return errors.Wrap(err, "creating summary file")
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&s.results, f); err != nil {
		return errors.Wrap(err, "writing summary file")
	}

	s.log.WithFields(logrus.Fields{"json": jsonPath, "csv": csvPath}).Info("results saved")
	return nil
}

// equivalent reports whether two grayscale tensors agree element-wise
// within the rounding tolerance.
func equivalent(a, b *tensor.Dense) error {
	if !a.Shape().Eq(b.Shape()) {
		return errors.Errorf("shape mismatch: %v vs %v", a.Shape(), b.Shape())
	}

	av := a.Data().([]uint8)
	bv := b.Data().([]uint8)
	for i := range av {
		diff := int(av[i]) - int(bv[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > equivalenceTolerance {
			return errors.Errorf("pixel %d differs beyond tolerance: %d vs %d", i, av[i], bv[i])
		}
	}
	return nil
}
