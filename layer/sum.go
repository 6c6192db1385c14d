package layer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Sum is a Linear layer without a bias term: y = W*x. Default initial
// parameters, per spec, are all 1.0; DefaultParams returns them.
type Sum struct {
	neuronsIn  int
	neuronsOut int

	chainElement *mat.Dense
	backed       bool
}

// NewSum creates a Sum layer of the given input/output widths.
func NewSum(neuronsIn, neuronsOut int) *Sum {
	return &Sum{neuronsIn: neuronsIn, neuronsOut: neuronsOut}
}

func (l *Sum) Kind() string     { return "Sum" }
func (l *Sum) ParamsCount() int { return l.neuronsIn * l.neuronsOut }
func (l *Sum) NeuronsIn() int   { return l.neuronsIn }
func (l *Sum) NeuronsOut() int  { return l.neuronsOut }

// DefaultParams returns the layer's default initial parameter slice,
// all ones.
func (l *Sum) DefaultParams() []float64 {
	p := make([]float64, l.ParamsCount())
	for i := range p {
		p[i] = 1.0
	}
	return p
}

func (l *Sum) weights(p []float64) *mat.Dense {
	return mat.NewDense(l.neuronsOut, l.neuronsIn, p)
}

func (l *Sum) EvalUnchecked(p, x []float64) []float64 {
	w := l.weights(p)
	xv := mat.NewVecDense(l.neuronsIn, x)
	var yv mat.VecDense
	yv.MulVec(w, xv)
	y := make([]float64, l.neuronsOut)
	for i := range y {
		y[i] = yv.AtVec(i)
	}
	return y
}

func (l *Sum) Eval(p, x []float64) ([]float64, error) {
	if err := checkShape("Sum.Eval", p, x, l.ParamsCount(), l.neuronsIn); err != nil {
		return nil, err
	}
	return l.EvalUnchecked(p, x), nil
}

func (l *Sum) Forward(p, x []float64) ([]float64, error) {
	return l.Eval(p, x)
}

func (l *Sum) Backward(p []float64) error {
	if len(p) != l.ParamsCount() {
		return fmt.Errorf("Sum.Backward: %w: expected %d params, got %d", ErrShapeMismatch, l.ParamsCount(), len(p))
	}
	l.chainElement = l.weights(p)
	l.backed = true
	return nil
}

func (l *Sum) ChainElement() (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("Sum.ChainElement: %w: no prior Backward", ErrProtocol)
	}
	return l.chainElement, nil
}

func (l *Sum) ChainEnd(x []float64) (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("Sum.ChainEnd: %w: no prior Backward", ErrProtocol)
	}
	if len(x) != l.neuronsIn {
		return nil, fmt.Errorf("Sum.ChainEnd: %w: expected input of length %d, got %d", ErrShapeMismatch, l.neuronsIn, len(x))
	}
	m := mat.NewDense(l.neuronsOut, l.ParamsCount(), nil)
	for i := 0; i < l.neuronsOut; i++ {
		for j := 0; j < l.neuronsIn; j++ {
			m.Set(i, i*l.neuronsIn+j, x[j])
		}
	}
	return m, nil
}
