package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fileName = "manifest.yml"

func setup(t *testing.T) string {
	t.Helper()
	content := []byte(`layers:
  - kind: linear
    in: 1
    out: 4
  - kind: gelu
    size: 4
  - kind: linear
    in: 4
    out: 1
training:
  trainer: lm
  iterations: 50
  lm:
    gain_ratio_threshold: 0.1
    max_damping_retries: 64
linesearch:
  p0: 1e-6
  eps: 1e-6
`)
	tmpPath := filepath.Join(t.TempDir(), fileName)
	require.NoError(t, os.WriteFile(tmpPath, content, 0o644))
	return tmpPath
}

func TestLoad(t *testing.T) {
	tmpPath := setup(t)

	m, err := Load(tmpPath)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Len(t, m.Layers, 3)
	assert.Equal(t, "lm", m.Training.Trainer)
	assert.Equal(t, 50, m.Training.Iterations)
}

func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	tmpPath := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(tmpPath, []byte("layers: [this is not\n  a valid: manifest"), 0o644))
	_, err := Load(tmpPath)
	assert.Error(t, err)
}

func TestBuildNetwork(t *testing.T) {
	tmpPath := setup(t)
	m, err := Load(tmpPath)
	require.NoError(t, err)

	net, err := m.BuildNetwork()
	require.NoError(t, err)
	assert.Equal(t, 1, net.NeuronsIn())
	assert.Equal(t, 1, net.NeuronsOut())
	assert.Equal(t, 4+4+4*1+1, net.ParamsCount())
}

func TestBuildNetworkUnsupportedLayerKind(t *testing.T) {
	m := &Manifest{Layers: []LayerManifest{{Kind: "rbf", Size: 4}}}
	_, err := m.BuildNetwork()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestBuildNetworkRejectsMismatchedDims(t *testing.T) {
	m := &Manifest{Layers: []LayerManifest{
		{Kind: "linear", In: 1, Out: 4},
		{Kind: "gelu", Size: 5},
	}}
	_, err := m.BuildNetwork()
	assert.Error(t, err)
}

func TestLineSearchOptionsFallsBackToDefaults(t *testing.T) {
	m := &Manifest{}
	opts := m.LineSearchOptions()
	assert.Equal(t, 1e-6, opts.P0)
	assert.Equal(t, 1000, opts.MaxBracketExpansions)
}

func TestIterationsDefaultsTo20(t *testing.T) {
	m := &Manifest{}
	assert.Equal(t, 20, m.Iterations())
}

func TestNewTrainerUnsupportedKind(t *testing.T) {
	tmpPath := setup(t)
	m, err := Load(tmpPath)
	require.NoError(t, err)
	m.Training.Trainer = "bogus"

	net, err := m.BuildNetwork()
	require.NoError(t, err)
	p := net.LayersInfo()
	_ = p

	_, err = m.NewTrainer(net, make([]float64, net.ParamsCount()), [][]float64{{1}}, [][]float64{{1}})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestNewTrainerBuildsLM(t *testing.T) {
	tmpPath := setup(t)
	m, err := Load(tmpPath)
	require.NoError(t, err)

	net, err := m.BuildNetwork()
	require.NoError(t, err)
	p := make([]float64, net.ParamsCount())
	for i := range p {
		p[i] = 0.1
	}

	tr, err := m.NewTrainer(net, p, [][]float64{{1}, {-1}}, [][]float64{{0.5}, {-0.5}})
	require.NoError(t, err)
	require.NotNil(t, tr)

	_, err = tr.Cost()
	require.NoError(t, err)
}
