package train

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"secondorder/linesearch"
	"secondorder/network"
)

// LMOptions configures the Levenberg-Marquardt damping loop.
type LMOptions struct {
	// MaxDampingRetries caps choose_lm_step's inner loop (spec 4.7/7:
	// "LMStalled" if no acceptable step is found).
	MaxDampingRetries int
	// SimpleAcceptance selects the fixed-size source variant's
	// acceptance rule (accept any cost decrease) instead of the
	// textbook gain-ratio test (spec Open Question 3).
	SimpleAcceptance bool
	// GainRatioThreshold is the rho threshold for the gain-ratio
	// acceptance rule; ignored when SimpleAcceptance is set.
	GainRatioThreshold float64
}

// DefaultLMOptions returns the spec's default LM configuration: the
// gain-ratio acceptance rule (the "textbook LM" variant Open Question
// 3 recommends), thresholded at 0.1, capped at 64 damping retries.
func DefaultLMOptions() LMOptions {
	return LMOptions{
		MaxDampingRetries:  64,
		SimpleAcceptance:   false,
		GainRatioThreshold: 0.1,
	}
}

// LM is a Levenberg-Marquardt trainer: a damped Gauss-Newton step
// computed from the approximate Hessian H = sum 2*J_i^T J_i, with
// multiplicative diagonal damping adapted by a shrink/grow ratio of
// 9/11 (spec 4.7).
type LM struct {
	*base

	Options LMOptions
	lambda  float64
}

// NewLM constructs an LM trainer over net, starting from parameters p
// against the training set (xs, ds), with the spec's initial damping
// factor of 0.1.
func NewLM(net *network.Network, p []float64, xs, ds [][]float64) (*LM, error) {
	b, err := newBase(net, p, xs, ds, linesearch.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return &LM{base: b, Options: DefaultLMOptions(), lambda: 0.1}, nil
}

// Lambda returns the trainer's current damping factor.
func (t *LM) Lambda() float64 { return t.lambda }

// MakeStep accumulates the approximate Hessian and gradient proxy
// over the training set, searches for an acceptable damped step, and
// applies it.
func (t *LM) MakeStep() error {
	g, h, err := t.gradAndJacobianSum(true)
	if err != nil {
		return err
	}
	step, err := t.chooseLMStep(h, g)
	if err != nil {
		return err
	}
	return ApplyStep(t.p, step)
}

// chooseLMStep repeatedly damps H, inverts it, and evaluates the
// resulting candidate step until one is accepted or the retry cap is
// hit. A singular damped matrix falls back to a single GD-like line
// search along -g (spec 7: "Singular... handled internally").
func (t *LM) chooseLMStep(h *mat.Dense, g []float64) ([]float64, error) {
	cCur, err := t.cost()
	if err != nil {
		return nil, err
	}
	p := len(g)

	for attempt := 0; attempt < t.Options.MaxDampingRetries; attempt++ {
		m := mat.DenseCopyOf(h)
		for i := 0; i < p; i++ {
			m.Set(i, i, m.At(i, i)*(1+t.lambda))
		}

		var inv mat.Dense
		if err := inv.Inverse(m); err != nil {
			return t.chooseStep(scale(g, -1))
		}

		gv := mat.NewVecDense(p, g)
		var sv mat.VecDense
		sv.MulVec(&inv, gv)
		s := make([]float64, p)
		for i := 0; i < p; i++ {
			s[i] = -sv.AtVec(i)
		}

		if err := ApplyStep(t.p, s); err != nil {
			return nil, err
		}
		cNew, err := t.cost()
		if err := RevertStep(t.p, s); err != nil {
			return nil, err
		}
		if err != nil {
			return nil, err
		}

		if t.accept(cCur, cNew, g, h, s) {
			t.lambda = maxFloat(t.lambda/9, 1e-12)
			return s, nil
		}
		t.lambda *= 11
	}

	return nil, fmt.Errorf("train.LM.MakeStep: %w: exceeded %d damping retries", ErrLMStalled, t.Options.MaxDampingRetries)
}

func (t *LM) accept(cCur, cNew float64, g []float64, h *mat.Dense, s []float64) bool {
	if t.Options.SimpleAcceptance {
		return cNew < cCur
	}
	predicted := -floats.Dot(g, s) - 0.5*quadForm(s, h)
	if predicted <= 0 {
		return cNew < cCur
	}
	rho := (cCur - cNew) / predicted
	return rho > t.Options.GainRatioThreshold
}

func quadForm(s []float64, h *mat.Dense) float64 {
	n := len(s)
	sv := mat.NewVecDense(n, s)
	var hs mat.VecDense
	hs.MulVec(h, sv)
	total := 0.0
	for i := 0; i < n; i++ {
		total += s[i] * hs.AtVec(i)
	}
	return total
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Cost evaluates the current parameters against the training set.
func (t *LM) Cost() (float64, error) { return t.cost() }

// Grad returns the current gradient.
func (t *LM) Grad() ([]float64, error) { return t.grad() }

// GradNorm is the Euclidean norm of Grad().
func (t *LM) GradNorm() (float64, error) {
	g, err := t.grad()
	if err != nil {
		return 0, err
	}
	return gradNorm(g), nil
}

// Params returns the trainer's owned parameter vector.
func (t *LM) Params() []float64 { return t.p }
