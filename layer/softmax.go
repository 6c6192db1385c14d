package layer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SoftMax is a parameterless layer normalizing its input into a
// probability simplex. The numeric-stability shift subtracts the
// per-vector maximum before exponentiating; unlike the source this
// implementation initializes the running maximum to the first
// element (not 0.0), so all-negative inputs are fully stabilized
// (spec Open Question 2).
type SoftMax struct {
	n int

	signal       []float64
	chainElement *mat.Dense
	backed       bool
}

// NewSoftMax creates a SoftMax layer of width n.
func NewSoftMax(n int) *SoftMax {
	return &SoftMax{n: n}
}

func (l *SoftMax) Kind() string     { return "SoftMax" }
func (l *SoftMax) ParamsCount() int { return 0 }
func (l *SoftMax) NeuronsIn() int   { return l.n }
func (l *SoftMax) NeuronsOut() int  { return l.n }

func (l *SoftMax) EvalUnchecked(p, x []float64) []float64 {
	maxElem := x[0]
	for _, xi := range x[1:] {
		if xi > maxElem {
			maxElem = xi
		}
	}
	y := make([]float64, len(x))
	sum := 0.0
	for i, xi := range x {
		y[i] = math.Exp(xi - maxElem)
		sum += y[i]
	}
	for i := range y {
		y[i] /= sum
	}
	return y
}

func (l *SoftMax) Eval(p, x []float64) ([]float64, error) {
	if err := checkShape("SoftMax.Eval", p, x, 0, l.n); err != nil {
		return nil, err
	}
	return l.EvalUnchecked(p, x), nil
}

func (l *SoftMax) Forward(p, x []float64) ([]float64, error) {
	y, err := l.Eval(p, x)
	if err != nil {
		return nil, err
	}
	l.signal = y
	return y, nil
}

func (l *SoftMax) Backward(p []float64) error {
	if l.signal == nil {
		return fmt.Errorf("SoftMax.Backward: %w: no prior Forward", ErrProtocol)
	}
	if len(p) != 0 {
		return fmt.Errorf("SoftMax.Backward: %w: expected 0 params, got %d", ErrShapeMismatch, len(p))
	}
	m := mat.NewDense(l.n, l.n, nil)
	for i := 0; i < l.n; i++ {
		for j := 0; j < l.n; j++ {
			d := 0.0
			if i == j {
				d = l.signal[i]
			}
			m.Set(i, j, d-l.signal[i]*l.signal[j])
		}
	}
	l.chainElement = m
	l.backed = true
	return nil
}

func (l *SoftMax) ChainElement() (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("SoftMax.ChainElement: %w: no prior Backward", ErrProtocol)
	}
	return l.chainElement, nil
}

func (l *SoftMax) ChainEnd(x []float64) (*mat.Dense, error) {
	if !l.backed {
		return nil, fmt.Errorf("SoftMax.ChainEnd: %w: no prior Backward", ErrProtocol)
	}
	if len(x) != l.n {
		return nil, fmt.Errorf("SoftMax.ChainEnd: %w: expected input of length %d, got %d", ErrShapeMismatch, l.n, len(x))
	}
	return mat.NewDense(l.n, 0, nil), nil
}
