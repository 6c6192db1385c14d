package layer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// sqrt2OverPi is sqrt(2/pi), the GELU tanh-approximation constant.
var sqrt2OverPi = math.Sqrt(2.0 / math.Pi)

// GELU is a parameterless elementwise layer implementing the
// tanh approximation of the Gaussian Error Linear Unit:
// y_i = 0.5*x_i*(1 + tanh(sqrt(2/pi)*(x_i + 0.044715*x_i^3))).
type GELU struct {
	n int

	input        []float64
	chainElement *mat.Dense
	backed       bool
}

// NewGELU creates a GELU layer of width n.
func NewGELU(n int) *GELU {
	return &GELU{n: n}
}

func (l *GELU) Kind() string     { return "GELU" }
func (l *GELU) ParamsCount() int { return 0 }
func (l *GELU) NeuronsIn() int   { return l.n }
func (l *GELU) NeuronsOut() int  { return l.n }

func geluOf(x float64) float64 {
	inner := sqrt2OverPi * (x + 0.044715*x*x*x)
	return 0.5 * x * (1 + math.Tanh(inner))
}

// geluGrad is d/dx of geluOf, by the product/chain rule on
// 0.5*x*(1+tanh(u(x))) with u(x) = sqrt(2/pi)*(x + 0.044715*x^3).
func geluGrad(x float64) float64 {
	u := sqrt2OverPi * (x + 0.044715*x*x*x)
	du := sqrt2OverPi * (1 + 3*0.044715*x*x)
	t := math.Tanh(u)
	return 0.5*(1+t) + 0.5*x*(1-t*t)*du
}

func (l *GELU) EvalUnchecked(p, x []float64) []float64 {
	y := make([]float64, l.n)
	for i, xi := range x {
		y[i] = geluOf(xi)
	}
	return y
}

func (l *GELU) Eval(p, x []float64) ([]float64, error) {
	if err := checkShape("GELU.Eval", p, x, 0, l.n); err != nil {
		return nil, err
	}
	return l.EvalUnchecked(p, x), nil
}

func (l *GELU) Forward(p, x []float64) ([]float64, error) {
	y, err := l.Eval(p, x)
	if err != nil {
		return nil, err
	}
	l.input = append([]float64(nil), x...)
	return y, nil
}

func (l *GELU) Backward(p []float64) error {
	if l.input == nil {
		return fmt.Errorf("GELU.Backward: %w: no prior Forward", ErrProtocol)
	}
	if len(p) != 0 {
		return fmt.Errorf("GELU.Backward: %w: expected 0 params, got %d", ErrShapeMismatch, len(p))
	}
	m := mat.NewDense(l.n, l.n, nil)
	for i, xi := range l.input {
		m.Set(i, i, geluGrad(xi))
	}
	l.chainElement = m
	l.backed = true
	return nil
}

func (l *GELU) ChainElement() (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("GELU.ChainElement: %w: no prior Backward", ErrProtocol)
	}
	return l.chainElement, nil
}

func (l *GELU) ChainEnd(x []float64) (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("GELU.ChainEnd: %w: no prior Backward", ErrProtocol)
	}
	if len(x) != l.n {
		return nil, fmt.Errorf("GELU.ChainEnd: %w: expected input of length %d, got %d", ErrShapeMismatch, l.n, len(x))
	}
	return mat.NewDense(l.n, 0, nil), nil
}
