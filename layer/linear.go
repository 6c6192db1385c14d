package layer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Linear is an affine layer y = W*x + b. Parameters are stored as
// the Nout x Nin weight matrix W followed by the Nout-length bias
// vector b (weights first, W flattened in row-major order so that
// W[i][j] sits at index i*Nin+j, then the bias).
type Linear struct {
	neuronsIn  int
	neuronsOut int

	chainElement *mat.Dense
	backed       bool
}

// NewLinear creates a Linear layer of the given input/output widths.
func NewLinear(neuronsIn, neuronsOut int) *Linear {
	return &Linear{neuronsIn: neuronsIn, neuronsOut: neuronsOut}
}

func (l *Linear) Kind() string      { return "Linear" }
func (l *Linear) ParamsCount() int  { return l.neuronsIn*l.neuronsOut + l.neuronsOut }
func (l *Linear) NeuronsIn() int    { return l.neuronsIn }
func (l *Linear) NeuronsOut() int   { return l.neuronsOut }

func (l *Linear) weights(p []float64) *mat.Dense {
	return mat.NewDense(l.neuronsOut, l.neuronsIn, p[:l.neuronsIn*l.neuronsOut])
}

func (l *Linear) bias(p []float64) []float64 {
	return p[l.neuronsIn*l.neuronsOut:]
}

func (l *Linear) EvalUnchecked(p, x []float64) []float64 {
	w := l.weights(p)
	b := l.bias(p)
	xv := mat.NewVecDense(l.neuronsIn, x)
	var yv mat.VecDense
	yv.MulVec(w, xv)
	y := make([]float64, l.neuronsOut)
	for i := range y {
		y[i] = yv.AtVec(i) + b[i]
	}
	return y
}

func (l *Linear) Eval(p, x []float64) ([]float64, error) {
	if err := checkShape("Linear.Eval", p, x, l.ParamsCount(), l.neuronsIn); err != nil {
		return nil, err
	}
	return l.EvalUnchecked(p, x), nil
}

func (l *Linear) Forward(p, x []float64) ([]float64, error) {
	return l.Eval(p, x)
}

func (l *Linear) Backward(p []float64) error {
	if len(p) != l.ParamsCount() {
		return fmt.Errorf("Linear.Backward: %w: expected %d params, got %d", ErrShapeMismatch, l.ParamsCount(), len(p))
	}
	l.chainElement = l.weights(p)
	l.backed = true
	return nil
}

func (l *Linear) ChainElement() (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("Linear.ChainElement: %w: no prior Backward", ErrProtocol)
	}
	return l.chainElement, nil
}

func (l *Linear) ChainEnd(x []float64) (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("Linear.ChainEnd: %w: no prior Backward", ErrProtocol)
	}
	if len(x) != l.neuronsIn {
		return nil, fmt.Errorf("Linear.ChainEnd: %w: expected input of length %d, got %d", ErrShapeMismatch, l.neuronsIn, len(x))
	}
	m := mat.NewDense(l.neuronsOut, l.ParamsCount(), nil)
	for i := 0; i < l.neuronsOut; i++ {
		for j := 0; j < l.neuronsIn; j++ {
			m.Set(i, i*l.neuronsIn+j, x[j])
		}
		m.Set(i, l.neuronsIn*l.neuronsOut+i, 1.0)
	}
	return m, nil
}
