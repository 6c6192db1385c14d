package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secondorder/layer"
)

func TestNewOffsetsContiguous(t *testing.T) {
	assert := assert.New(t)

	l0 := layer.NewLinear(1, 2)
	l1 := layer.NewSigmoid(2)
	l2 := layer.NewLinear(2, 1)
	n, err := New(l0, l1, l2)
	assert.NoError(err)

	assert.Equal(0, n.Offset(0))
	assert.Equal(l0.ParamsCount(), n.Offset(1))
	assert.Equal(l0.ParamsCount()+l1.ParamsCount(), n.Offset(2))
	assert.Equal(l0.ParamsCount()+l1.ParamsCount()+l2.ParamsCount(), n.ParamsCount())
}

func TestNewDimensionMismatch(t *testing.T) {
	assert := assert.New(t)

	_, err := New(layer.NewLinear(1, 2), layer.NewLinear(3, 1))
	assert.ErrorIs(err, ErrShapeMismatch)
}

func TestEvalIsPure(t *testing.T) {
	assert := assert.New(t)

	n, err := New(layer.NewLinear(2, 2), layer.NewSigmoid(2))
	assert.NoError(err)
	p := []float64{1, 0, 0, 1, 0, 0}
	pCopy := append([]float64(nil), p...)

	y1, err := n.Eval(p, []float64{1, 2})
	assert.NoError(err)
	y2, err := n.Eval(p, []float64{1, 2})
	assert.NoError(err)

	assert.Equal(y1, y2)
	assert.Equal(pCopy, p)
}

func TestJacobianMatchesWorkedExample(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	n, err := New(layer.NewLinear(1, 2), layer.NewSigmoid(2))
	require.NoError(err)

	p := []float64{0.5, -0.35, 2, 1}

	for _, tc := range []struct {
		x    []float64
		want [][]float64
	}{
		{[]float64{1}, [][]float64{
			{0.07010371, 0, 0.07010371, 0},
			{0, 0.22534771, 0, 0.22534771},
		}},
		{[]float64{3}, [][]float64{
			{0.08535907, 0, 0.02845302, 0},
			{0, 0.74953144, 0, 0.24984380},
		}},
	} {
		_, err := n.Forward(p, tc.x)
		require.NoError(err)
		require.NoError(n.Backward(p))
		j, err := n.Jacobian(tc.x)
		require.NoError(err)

		for i, row := range tc.want {
			for k, v := range row {
				assert.InDelta(v, j.At(i, k), 1e-7)
			}
		}
	}
}

func TestJacobianMatchesFiniteDifference(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	n, err := New(layer.NewLinear(2, 3), layer.NewSigmoid(3), layer.NewLinear(3, 2))
	require.NoError(err)

	p := []float64{
		0.3, -0.2, 0.1, 0.4, -0.1, 0.2, 0.05, -0.05, 0.02,
		0.6, -0.4, 0.3, 0.2, -0.3, 0.1, 0.15, -0.25,
	}
	x := []float64{1.0, -0.5}

	_, err = n.Forward(p, x)
	require.NoError(err)
	require.NoError(n.Backward(p))
	j, err := n.Jacobian(x)
	require.NoError(err)

	const h = 1e-6
	for i := 0; i < n.ParamsCount(); i++ {
		pPlus := append([]float64(nil), p...)
		pMinus := append([]float64(nil), p...)
		pPlus[i] += h
		pMinus[i] -= h

		yPlus, err := n.Eval(pPlus, x)
		require.NoError(err)
		yMinus, err := n.Eval(pMinus, x)
		require.NoError(err)

		for row := 0; row < n.NeuronsOut(); row++ {
			fd := (yPlus[row] - yMinus[row]) / (2 * h)
			assert.InDelta(fd, j.At(row, i), 1e-4)
		}
	}
}

func TestJacobianWithoutBackwardIsProtocolError(t *testing.T) {
	assert := assert.New(t)

	n, err := New(layer.NewLinear(1, 1))
	assert.NoError(err)
	_, err = n.Jacobian([]float64{1})
	assert.ErrorIs(err, ErrProtocol)
}

func TestLayersInfo(t *testing.T) {
	assert := assert.New(t)

	n, err := New(layer.NewLinear(1, 2), layer.NewSigmoid(2))
	assert.NoError(err)
	info := n.LayersInfo()
	assert.Contains(info, "Linear")
	assert.Contains(info, "Sigmoid")
}
