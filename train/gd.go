package train

import (
	"secondorder/linesearch"
	"secondorder/network"
)

// GD is a plain steepest-descent trainer: each step moves along the
// negative gradient by whatever distance the golden-section line
// search picks. It carries no state across steps.
type GD struct {
	*base
}

// NewGD constructs a GD trainer over net, starting from parameters p
// against the training set (xs, ds). p, the network and the training
// set are owned by the trainer for its lifetime.
func NewGD(net *network.Network, p []float64, xs, ds [][]float64) (*GD, error) {
	b, err := newBase(net, p, xs, ds, linesearch.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return &GD{base: b}, nil
}

// MakeStep computes the gradient, takes the steepest-descent
// direction, and applies the line-search-chosen step.
func (t *GD) MakeStep() error {
	g, err := t.grad()
	if err != nil {
		return err
	}
	direction := scale(g, -1)
	step, err := t.chooseStep(direction)
	if err != nil {
		return err
	}
	return ApplyStep(t.p, step)
}

// Cost evaluates the current parameters against the training set.
func (t *GD) Cost() (float64, error) { return t.cost() }

// Grad returns the current gradient.
func (t *GD) Grad() ([]float64, error) { return t.grad() }

// GradNorm is the Euclidean norm of Grad().
func (t *GD) GradNorm() (float64, error) {
	g, err := t.grad()
	if err != nil {
		return 0, err
	}
	return gradNorm(g), nil
}

// Params returns the trainer's owned parameter vector.
func (t *GD) Params() []float64 { return t.p }
