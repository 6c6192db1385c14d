package layer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sigmoid is a parameterless elementwise layer:
// y_i = (tanh(x_i/2) + 1) / 2.
type Sigmoid struct {
	n int

	signal       []float64
	chainElement *mat.Dense
	backed       bool
}

// NewSigmoid creates a Sigmoid layer of width n.
func NewSigmoid(n int) *Sigmoid {
	return &Sigmoid{n: n}
}

func (l *Sigmoid) Kind() string     { return "Sigmoid" }
func (l *Sigmoid) ParamsCount() int { return 0 }
func (l *Sigmoid) NeuronsIn() int   { return l.n }
func (l *Sigmoid) NeuronsOut() int  { return l.n }

func sigmoidOf(x float64) float64 {
	return (math.Tanh(x/2) + 1) / 2
}

func (l *Sigmoid) EvalUnchecked(p, x []float64) []float64 {
	y := make([]float64, l.n)
	for i, xi := range x {
		y[i] = sigmoidOf(xi)
	}
	return y
}

func (l *Sigmoid) Eval(p, x []float64) ([]float64, error) {
	if err := checkShape("Sigmoid.Eval", p, x, 0, l.n); err != nil {
		return nil, err
	}
	return l.EvalUnchecked(p, x), nil
}

func (l *Sigmoid) Forward(p, x []float64) ([]float64, error) {
	y, err := l.Eval(p, x)
	if err != nil {
		return nil, err
	}
	l.signal = y
	return y, nil
}

func (l *Sigmoid) Backward(p []float64) error {
	if l.signal == nil {
		return fmt.Errorf("Sigmoid.Backward: %w: no prior Forward", ErrProtocol)
	}
	if len(p) != 0 {
		return fmt.Errorf("Sigmoid.Backward: %w: expected 0 params, got %d", ErrShapeMismatch, len(p))
	}
	m := mat.NewDense(l.n, l.n, nil)
	for i, yi := range l.signal {
		m.Set(i, i, yi*(1-yi))
	}
	l.chainElement = m
	l.backed = true
	return nil
}

func (l *Sigmoid) ChainElement() (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("Sigmoid.ChainElement: %w: no prior Backward", ErrProtocol)
	}
	return l.chainElement, nil
}

func (l *Sigmoid) ChainEnd(x []float64) (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("Sigmoid.ChainEnd: %w: no prior Backward", ErrProtocol)
	}
	if len(x) != l.n {
		return nil, fmt.Errorf("Sigmoid.ChainEnd: %w: expected input of length %d, got %d", ErrShapeMismatch, l.n, len(x))
	}
	return mat.NewDense(l.n, 0, nil), nil
}
