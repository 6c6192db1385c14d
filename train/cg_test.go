package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestCGMakeStepReducesCost(t *testing.T) {
	net := sumNet1x1(t)
	p := []float64{2}
	tr, err := NewCG(net, p, [][]float64{{3}}, [][]float64{{1}})
	require.NoError(t, err)

	c0, err := tr.Cost()
	require.NoError(t, err)
	require.NoError(t, tr.MakeStep())
	c1, err := tr.Cost()
	require.NoError(t, err)
	assert.Less(t, c1, c0)
}

func TestCGConvergesTowardTarget(t *testing.T) {
	net := sumNet1x1(t)
	p := []float64{2}
	tr, err := NewCG(net, p, [][]float64{{3}}, [][]float64{{1}})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, tr.MakeStep())
	}

	c, err := tr.Cost()
	require.NoError(t, err)
	assert.Less(t, c, 1e-8)
}

func TestCGRestartsToSteepestDescentEveryParamsCount(t *testing.T) {
	net := sumNet1x1(t)
	p := []float64{2}
	tr, err := NewCG(net, p, [][]float64{{3}}, [][]float64{{1}})
	require.NoError(t, err)

	assert.Equal(t, 0, tr.stepNum)
	require.NoError(t, tr.MakeStep())
	assert.Equal(t, 1, tr.stepNum)
	assert.Equal(t, scale(tr.gPrev, -1), tr.dPrev)
	// ParamsCount() == 1, so the very next step also restarts.
	require.NoError(t, tr.MakeStep())
	assert.Equal(t, 2, tr.stepNum)
	assert.Equal(t, scale(tr.gPrev, -1), tr.dPrev)
}

func TestFletcherReevesOptionSelectsAlternateBeta(t *testing.T) {
	g := []float64{1, 2, 3}
	gPrev := []float64{0.5, 0.5, 0.5}

	pr := polakRibiere(g, gPrev)
	fr := fletcherReeves(g, gPrev)
	assert.NotEqual(t, pr, fr)

	wantFR := floats.Dot(g, g) / floats.Dot(gPrev, gPrev)
	assert.InDelta(t, wantFR, fr, 1e-12)
}

func TestCGWithFletcherReevesStillConverges(t *testing.T) {
	net := sumNet1x1(t)
	p := []float64{2}
	tr, err := NewCG(net, p, [][]float64{{3}}, [][]float64{{1}})
	require.NoError(t, err)
	tr.FletcherReeves = true

	for i := 0; i < 20; i++ {
		require.NoError(t, tr.MakeStep())
	}

	c, err := tr.Cost()
	require.NoError(t, err)
	assert.Less(t, c, 1e-8)
}
