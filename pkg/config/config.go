// Package config decodes a YAML training manifest into a network
// architecture and trainer configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"secondorder/layer"
	"secondorder/linesearch"
	"secondorder/network"
	"secondorder/train"
)

// ErrUnsupported is returned when a manifest names a layer kind or
// trainer this package does not know how to build.
var ErrUnsupported = errors.New("config: unsupported")

// LayerManifest describes one layer entry in the manifest's layers
// list.
type LayerManifest struct {
	// Kind is one of "linear", "sum", "sigmoid", "gelu", "softmax".
	Kind string `yaml:"kind"`
	// In is the layer's input width. Activation layers (sigmoid,
	// gelu, softmax) use Size for both in and out instead.
	In int `yaml:"in,omitempty"`
	// Out is the layer's output width.
	Out int `yaml:"out,omitempty"`
	// Size is the shared in/out width for activation layers.
	Size int `yaml:"size,omitempty"`
}

// LineSearchManifest mirrors linesearch.Options.
type LineSearchManifest struct {
	P0                   float64 `yaml:"p0,omitempty"`
	Eps                  float64 `yaml:"eps,omitempty"`
	MaxBracketExpansions int     `yaml:"max_bracket_expansions,omitempty"`
}

// CGManifest configures the CG trainer.
type CGManifest struct {
	FletcherReeves bool `yaml:"fletcher_reeves,omitempty"`
}

// LMManifest configures the LM trainer.
type LMManifest struct {
	SimpleAcceptance   bool    `yaml:"simple_acceptance,omitempty"`
	GainRatioThreshold float64 `yaml:"gain_ratio_threshold,omitempty"`
	MaxDampingRetries  int     `yaml:"max_damping_retries,omitempty"`
}

// TrainingManifest selects and configures a trainer.
type TrainingManifest struct {
	// Trainer is one of "gd", "cg", "lm".
	Trainer    string `yaml:"trainer"`
	Iterations int    `yaml:"iterations,omitempty"`
	CG         CGManifest `yaml:"cg,omitempty"`
	LM         LMManifest `yaml:"lm,omitempty"`
}

// Manifest is the top-level decoded training configuration.
type Manifest struct {
	Layers     []LayerManifest    `yaml:"layers"`
	Training   TrainingManifest   `yaml:"training"`
	LineSearch LineSearchManifest `yaml:"linesearch,omitempty"`
}

// Load reads and decodes a YAML manifest file at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("config.Load: decode %s: %w", path, err)
	}
	return &m, nil
}

// BuildNetwork constructs a network.Network from the manifest's
// layers list, in order.
func (m *Manifest) BuildNetwork() (*network.Network, error) {
	layers := make([]layer.Layer, len(m.Layers))
	for i, lm := range m.Layers {
		l, err := buildLayer(lm)
		if err != nil {
			return nil, fmt.Errorf("config.BuildNetwork: layer %d: %w", i, err)
		}
		layers[i] = l
	}
	net, err := network.New(layers...)
	if err != nil {
		return nil, fmt.Errorf("config.BuildNetwork: %w", err)
	}
	return net, nil
}

func buildLayer(lm LayerManifest) (layer.Layer, error) {
	switch lm.Kind {
	case "linear":
		if lm.In <= 0 || lm.Out <= 0 {
			return nil, fmt.Errorf("%w: linear layer requires positive in/out, got in=%d out=%d", ErrUnsupported, lm.In, lm.Out)
		}
		return layer.NewLinear(lm.In, lm.Out), nil
	case "sum":
		if lm.In <= 0 || lm.Out <= 0 {
			return nil, fmt.Errorf("%w: sum layer requires positive in/out, got in=%d out=%d", ErrUnsupported, lm.In, lm.Out)
		}
		return layer.NewSum(lm.In, lm.Out), nil
	case "sigmoid":
		if lm.Size <= 0 {
			return nil, fmt.Errorf("%w: sigmoid layer requires positive size, got %d", ErrUnsupported, lm.Size)
		}
		return layer.NewSigmoid(lm.Size), nil
	case "gelu":
		if lm.Size <= 0 {
			return nil, fmt.Errorf("%w: gelu layer requires positive size, got %d", ErrUnsupported, lm.Size)
		}
		return layer.NewGELU(lm.Size), nil
	case "softmax":
		if lm.Size <= 0 {
			return nil, fmt.Errorf("%w: softmax layer requires positive size, got %d", ErrUnsupported, lm.Size)
		}
		return layer.NewSoftMax(lm.Size), nil
	default:
		return nil, fmt.Errorf("%w: layer kind %q", ErrUnsupported, lm.Kind)
	}
}

// LineSearchOptions returns the manifest's line-search options,
// falling back to linesearch.DefaultOptions for any zero field.
func (m *Manifest) LineSearchOptions() linesearch.Options {
	opts := linesearch.DefaultOptions()
	if m.LineSearch.P0 != 0 {
		opts.P0 = m.LineSearch.P0
	}
	if m.LineSearch.Eps != 0 {
		opts.Eps = m.LineSearch.Eps
	}
	if m.LineSearch.MaxBracketExpansions != 0 {
		opts.MaxBracketExpansions = m.LineSearch.MaxBracketExpansions
	}
	return opts
}

// LMOptions returns the manifest's LM options, falling back to
// train.DefaultLMOptions for any zero field.
func (m *Manifest) LMOptions() train.LMOptions {
	opts := train.DefaultLMOptions()
	opts.SimpleAcceptance = m.Training.LM.SimpleAcceptance
	if m.Training.LM.GainRatioThreshold != 0 {
		opts.GainRatioThreshold = m.Training.LM.GainRatioThreshold
	}
	if m.Training.LM.MaxDampingRetries != 0 {
		opts.MaxDampingRetries = m.Training.LM.MaxDampingRetries
	}
	return opts
}

// Iterations returns the manifest's training iteration count,
// defaulting to 20 when unset, matching the source config's default.
func (m *Manifest) Iterations() int {
	if m.Training.Iterations <= 0 {
		return 20
	}
	return m.Training.Iterations
}

// NewTrainer builds the trainer named by the manifest's Training.Trainer
// field over net, starting from params p against the training set
// (xs, ds).
func (m *Manifest) NewTrainer(net *network.Network, p []float64, xs, ds [][]float64) (train.Trainer, error) {
	ls := m.LineSearchOptions()
	switch m.Training.Trainer {
	case "gd":
		tr, err := train.NewGD(net, p, xs, ds)
		if err != nil {
			return nil, err
		}
		tr.SetLineSearchOptions(ls)
		return tr, nil
	case "cg":
		tr, err := train.NewCG(net, p, xs, ds)
		if err != nil {
			return nil, err
		}
		tr.FletcherReeves = m.Training.CG.FletcherReeves
		tr.SetLineSearchOptions(ls)
		return tr, nil
	case "lm":
		tr, err := train.NewLM(net, p, xs, ds)
		if err != nil {
			return nil, err
		}
		tr.Options = m.LMOptions()
		tr.SetLineSearchOptions(ls)
		return tr, nil
	default:
		return nil, fmt.Errorf("%w: trainer %q", ErrUnsupported, m.Training.Trainer)
	}
}
