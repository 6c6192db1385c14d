package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"secondorder/layer"
	"secondorder/network"
)

func linNet1x1(t *testing.T) *network.Network {
	t.Helper()
	net, err := network.New(layer.NewLinear(1, 1))
	require.NoError(t, err)
	return net
}

func TestLMStartsAtSpecDampingFactor(t *testing.T) {
	net := sumNet1x1(t)
	tr, err := NewLM(net, []float64{2}, [][]float64{{3}}, [][]float64{{1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, tr.Lambda(), 1e-12)
}

func TestLMGradMatchesGDWorkedExample(t *testing.T) {
	net := sumNet1x1(t)
	tr, err := NewLM(net, []float64{2}, [][]float64{{3}}, [][]float64{{1}})
	require.NoError(t, err)

	g, err := tr.Grad()
	require.NoError(t, err)
	require.Len(t, g, 1)
	assert.InDelta(t, 30.0, g[0], 1e-9)
}

func TestLMMakeStepReducesCost(t *testing.T) {
	net := linNet1x1(t)
	p := []float64{2, 0.5}
	tr, err := NewLM(net, p, [][]float64{{3}, {-1}}, [][]float64{{1}, {0}})
	require.NoError(t, err)

	c0, err := tr.Cost()
	require.NoError(t, err)
	require.NoError(t, tr.MakeStep())
	c1, err := tr.Cost()
	require.NoError(t, err)
	assert.LessOrEqual(t, c1, c0)
}

func TestLMConvergesTowardTarget(t *testing.T) {
	net := linNet1x1(t)
	p := []float64{2, 0.5}
	tr, err := NewLM(net, p, [][]float64{{3}, {-1}, {2}}, [][]float64{{1}, {0}, {0.5}})
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		require.NoError(t, tr.MakeStep())
	}

	c, err := tr.Cost()
	require.NoError(t, err)
	assert.Less(t, c, 1e-6)
}

func TestLMAcceptedStepShrinksLambda(t *testing.T) {
	net := linNet1x1(t)
	p := []float64{2, 0.5}
	tr, err := NewLM(net, p, [][]float64{{3}, {-1}}, [][]float64{{1}, {0}})
	require.NoError(t, err)

	lambda0 := tr.Lambda()
	require.NoError(t, tr.MakeStep())
	assert.Less(t, tr.Lambda(), lambda0)
}

func TestLMSimpleAcceptanceAcceptsAnyDecrease(t *testing.T) {
	net := linNet1x1(t)
	p := []float64{2, 0.5}
	tr, err := NewLM(net, p, [][]float64{{3}, {-1}}, [][]float64{{1}, {0}})
	require.NoError(t, err)
	tr.Options.SimpleAcceptance = true

	c0, err := tr.Cost()
	require.NoError(t, err)
	require.NoError(t, tr.MakeStep())
	c1, err := tr.Cost()
	require.NoError(t, err)
	assert.Less(t, c1, c0)
}

func TestLMStallReturnsErrLMStalled(t *testing.T) {
	net := linNet1x1(t)
	p := []float64{2, 0.5}
	tr, err := NewLM(net, p, [][]float64{{3}, {-1}}, [][]float64{{1}, {0}})
	require.NoError(t, err)
	tr.Options.MaxDampingRetries = 0

	g, h, err := tr.gradAndJacobianSum(true)
	require.NoError(t, err)
	_, err = tr.chooseLMStep(h, g)
	assert.ErrorIs(t, err, ErrLMStalled)
}

func TestQuadFormMatchesDirectComputation(t *testing.T) {
	h := mat.NewDense(2, 2, []float64{2, 0, 0, 3})
	s := []float64{1, 2}
	// s^T H s = 1*2*1 + 2*3*2 = 2 + 12 = 14
	assert.InDelta(t, 14.0, quadForm(s, h), 1e-12)
}
