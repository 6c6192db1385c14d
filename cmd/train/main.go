// Command train fits a feed-forward network's parameters to a CSV
// training set using the trainer named in a YAML manifest.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"

	"secondorder/pkg/config"
	"secondorder/pkg/dataset"
	"secondorder/pkg/initparams"
	"secondorder/train"
)

var (
	manifestPath string
	dataPath     string
	reqScale     bool
	iters        int
	seed         int64
	profilePath  string
)

func init() {
	flag.StringVar(&manifestPath, "manifest", "", "Path to training manifest (YAML)")
	flag.StringVar(&dataPath, "data", "", "Path to training data set (CSV)")
	flag.BoolVar(&reqScale, "scale", false, "Scale the data set before training")
	flag.IntVar(&iters, "iters", 0, "Number of training iterations (0: use the manifest's value)")
	flag.Int64Var(&seed, "seed", 55, "Parameter initialization seed")
	flag.StringVar(&profilePath, "profile", "", "If set, write a CPU profile to this path")
}

func parseCliFlags() error {
	flag.Parse()
	if manifestPath == "" {
		return errors.New("you must specify -manifest")
	}
	if dataPath == "" {
		return errors.New("you must specify -data")
	}
	return nil
}

func main() {
	if err := parseCliFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing cli flags: %s\n", err)
		os.Exit(1)
	}

	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	m, err := config.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	net, err := m.BuildNetwork()
	if err != nil {
		return fmt.Errorf("building network: %w", err)
	}

	ds, err := dataset.Load(dataPath)
	if err != nil {
		return fmt.Errorf("loading data set: %w", err)
	}
	if reqScale {
		ds.Scale()
	}
	xs, targets, err := ds.Split(net.NeuronsIn())
	if err != nil {
		return fmt.Errorf("splitting data set: %w", err)
	}

	p, err := initparams.Xavier(net.ParamsCount(), net.NeuronsIn(), net.NeuronsOut(), rand.New(rand.NewSource(seed)))
	if err != nil {
		return fmt.Errorf("initializing parameters: %w", err)
	}

	tr, err := m.NewTrainer(net, p, xs, targets)
	if err != nil {
		return fmt.Errorf("building trainer: %w", err)
	}

	n := iters
	if n <= 0 {
		n = m.Iterations()
	}

	log.Printf("training %s (%d params) for %d iterations\n%s", m.Training.Trainer, net.ParamsCount(), n, net.LayersInfo())

	if err := train.Run(tr, n, func(step int, cost float64) {
		log.Printf("step %d: cost %f", step, cost)
	}); err != nil {
		return fmt.Errorf("training: %w", err)
	}

	finalCost, err := tr.Cost()
	if err != nil {
		return fmt.Errorf("evaluating final cost: %w", err)
	}
	log.Printf("final cost: %f", finalCost)
	return nil
}
