// Command grayscale-bench compares three implementations of RGB-to-grayscale
// conversion: a vectorized tensor formulation, the same formula compiled to
// a gorgonia tape-machine program, and a per-pixel loop specialized and
// cached per input signature. Each (function, image) pair is measured for
// wall-clock time and heap usage, with the compiled variants paying their
// compilation cost on the first image and reusing the cached program on
// later images of the same shape.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/afairless/grayscale-bench/benchmark"
	"github.com/afairless/grayscale-bench/jit"
	"github.com/afairless/grayscale-bench/profiler"
	"github.com/afairless/grayscale-bench/util"
)

const (
	// DefaultInputDir is where input images are discovered.
	DefaultInputDir = "input"
	// DefaultOutputDir receives grayscale images and result files.
	DefaultOutputDir = "output"
)

func main() {
	var (
		inputDir       string
		outputDir      string
		sampleInterval time.Duration
		noSave         bool
	)
	flag.StringVar(&inputDir, "input", DefaultInputDir, "Directory containing input images (jpg/jpeg/png)")
	flag.StringVar(&outputDir, "output", DefaultOutputDir, "Directory for grayscale images and result files")
	flag.DurationVar(&sampleInterval, "sample-interval", 0, "Heap sampling period (0 = default, negative disables memory sampling)")
	flag.BoolVar(&noSave, "no-save", false, "Skip writing grayscale images and result files")
	flag.Parse()

	log := logrus.New()

	paths, err := util.ListImageFiles(inputDir)
	if err != nil {
		log.WithError(err).Error("listing input images")
		os.Exit(1)
	}
	if len(paths) == 0 {
		log.Errorf("no images found in %s", inputDir)
		os.Exit(1)
	}

	suite := benchmark.NewSuite(benchmark.Config{
		Cache:      jit.NewCache(),
		Harness:    profiler.New(profiler.Options{SampleInterval: sampleInterval}, log),
		OutputDir:  outputDir,
		SaveImages: !noSave,
		Log:        log,
	})

	if err := suite.Run(paths); err != nil {
		log.WithError(err).Error("benchmark aborted")
		os.Exit(1)
	}

	if !noSave {
		if err := suite.SaveResults(); err != nil {
			log.WithError(err).Error("saving results")
			os.Exit(1)
		}
	}
}
