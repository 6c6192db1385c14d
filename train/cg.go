package train

import (
	"gonum.org/v1/gonum/floats"

	"secondorder/linesearch"
	"secondorder/network"
)

// CG is a Fletcher-type conjugate-gradient trainer using the
// Polak-Ribiere direction update, with a periodic restart to
// steepest descent every ParamsCount() steps (spec 4.6). Set
// FletcherReeves to use the Fletcher-Reeves numerator instead
// (spec Open Question 4: "a valid alternative... should be
// selectable").
type CG struct {
	*base

	// FletcherReeves selects the Fletcher-Reeves beta numerator
	// (g.g^T) instead of the default Polak-Ribiere one
	// (g.(g-g_prev)^T).
	FletcherReeves bool

	stepNum int
	gPrev   []float64
	dPrev   []float64
}

// NewCG constructs a CG trainer over net, starting from parameters p
// against the training set (xs, ds).
func NewCG(net *network.Network, p []float64, xs, ds [][]float64) (*CG, error) {
	b, err := newBase(net, p, xs, ds, linesearch.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return &CG{
		base:  b,
		gPrev: make([]float64, net.ParamsCount()),
		dPrev: make([]float64, net.ParamsCount()),
	}, nil
}

// MakeStep computes the conjugate direction (restarting to steepest
// descent every ParamsCount() steps) and applies the line-search
// step.
func (t *CG) MakeStep() error {
	g, err := t.grad()
	if err != nil {
		return err
	}

	var direction []float64
	if t.stepNum%t.net.ParamsCount() == 0 {
		direction = scale(g, -1)
	} else {
		beta := polakRibiere(g, t.gPrev)
		if t.FletcherReeves {
			beta = fletcherReeves(g, t.gPrev)
		}
		direction = make([]float64, len(g))
		for i := range g {
			direction[i] = -g[i] + beta*t.dPrev[i]
		}
	}

	step, err := t.chooseStep(direction)
	if err != nil {
		return err
	}
	if err := ApplyStep(t.p, step); err != nil {
		return err
	}

	t.stepNum++
	t.gPrev = g
	t.dPrev = direction
	return nil
}

// polakRibiere computes beta = (g.(g-g_prev)^T) / (g_prev.g_prev^T).
func polakRibiere(g, gPrev []float64) float64 {
	diff := make([]float64, len(g))
	floats.SubTo(diff, g, gPrev)
	den := floats.Dot(gPrev, gPrev)
	if den == 0 {
		return 0
	}
	return floats.Dot(g, diff) / den
}

// fletcherReeves computes beta = (g.g^T) / (g_prev.g_prev^T).
func fletcherReeves(g, gPrev []float64) float64 {
	den := floats.Dot(gPrev, gPrev)
	if den == 0 {
		return 0
	}
	return floats.Dot(g, g) / den
}

// Cost evaluates the current parameters against the training set.
func (t *CG) Cost() (float64, error) { return t.cost() }

// Grad returns the current gradient.
func (t *CG) Grad() ([]float64, error) { return t.grad() }

// GradNorm is the Euclidean norm of Grad().
func (t *CG) GradNorm() (float64, error) {
	g, err := t.grad()
	if err != nil {
		return 0, err
	}
	return gradNorm(g), nil
}

// Params returns the trainer's owned parameter vector.
func (t *CG) Params() []float64 { return t.p }
