// Package train implements the shared trainer utilities (loss
// evaluation, parameter step apply/revert) and the Trainer interface
// that the GD, CG and LM trainers all satisfy. Training is always
// full-batch: every make_step pass walks the whole training set.
package train

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"secondorder/linesearch"
	"secondorder/network"
)

// ErrShapeMismatch is returned when the training set's input/target
// lengths don't match the network's dimensions, or xs and ds have
// different sample counts.
var ErrShapeMismatch = errors.New("train: shape mismatch")

// ErrLineSearchDivergent is returned when the line search's bracket
// expansion exceeds its cap (linesearch.ErrDivergent, surfaced here).
var ErrLineSearchDivergent = errors.New("train: line search divergent")

// ErrLMStalled is returned when the LM damping loop exceeds its
// retry cap without finding an acceptable step.
var ErrLMStalled = errors.New("train: Levenberg-Marquardt stalled")

// Trainer drives a network toward lower cost against a fixed
// training set, one make_step at a time.
type Trainer interface {
	// MakeStep computes one descent step and mutates the owned
	// parameter vector in place.
	MakeStep() error
	// Cost evaluates the current parameters against the training set.
	Cost() (float64, error)
	// Grad returns the current gradient (row vector of length P).
	Grad() ([]float64, error)
	// GradNorm is the Euclidean norm of Grad().
	GradNorm() (float64, error)
	// Params returns the trainer's owned parameter vector.
	Params() []float64
}

// Cost is the sum, over the training set, of squared Euclidean
// residuals: sum_i ||y_i - d_i||^2.
func Cost(ys, ds [][]float64) (float64, error) {
	if len(ys) != len(ds) {
		return 0, fmt.Errorf("train.Cost: %w: %d outputs, %d targets", ErrShapeMismatch, len(ys), len(ds))
	}
	total := 0.0
	for i := range ys {
		if len(ys[i]) != len(ds[i]) {
			return 0, fmt.Errorf("train.Cost: %w: sample %d has %d outputs, %d targets", ErrShapeMismatch, i, len(ys[i]), len(ds[i]))
		}
		for j := range ys[i] {
			diff := ys[i][j] - ds[i][j]
			total += diff * diff
		}
	}
	return total, nil
}

// ApplyStep does p <- p + s elementwise.
func ApplyStep(p, s []float64) error {
	if len(p) != len(s) {
		return fmt.Errorf("train.ApplyStep: %w: params len %d, step len %d", ErrShapeMismatch, len(p), len(s))
	}
	for i := range p {
		p[i] += s[i]
	}
	return nil
}

// RevertStep does p <- p - s elementwise.
func RevertStep(p, s []float64) error {
	if len(p) != len(s) {
		return fmt.Errorf("train.RevertStep: %w: params len %d, step len %d", ErrShapeMismatch, len(p), len(s))
	}
	for i := range p {
		p[i] -= s[i]
	}
	return nil
}

// base holds the state shared by GD, CG and LM: the owned parameter
// vector, the read-only training set, and the owned (mutable-cache)
// network.
type base struct {
	net *network.Network
	p   []float64
	xs  [][]float64
	ds  [][]float64

	ls linesearch.Options
}

func newBase(n *network.Network, p []float64, xs, ds [][]float64, ls linesearch.Options) (*base, error) {
	if len(p) != n.ParamsCount() {
		return nil, fmt.Errorf("train.New: %w: expected %d params, got %d", ErrShapeMismatch, n.ParamsCount(), len(p))
	}
	if len(xs) != len(ds) {
		return nil, fmt.Errorf("train.New: %w: %d inputs, %d targets", ErrShapeMismatch, len(xs), len(ds))
	}
	for i := range xs {
		if len(xs[i]) != n.NeuronsIn() {
			return nil, fmt.Errorf("train.New: %w: sample %d input length %d != %d", ErrShapeMismatch, i, len(xs[i]), n.NeuronsIn())
		}
		if len(ds[i]) != n.NeuronsOut() {
			return nil, fmt.Errorf("train.New: %w: sample %d target length %d != %d", ErrShapeMismatch, i, len(ds[i]), n.NeuronsOut())
		}
	}
	return &base{net: n, p: p, xs: xs, ds: ds, ls: ls}, nil
}

// SetLineSearchOptions overrides the line-search constants used by
// chooseStep (GD and CG; LM falls back to chooseStep only on a
// singular damped matrix).
func (b *base) SetLineSearchOptions(o linesearch.Options) { b.ls = o }

// evalAll runs the network's pure Eval across the training set.
func (b *base) evalAll(p []float64) ([][]float64, error) {
	ys := make([][]float64, len(b.xs))
	for i, x := range b.xs {
		y, err := b.net.Eval(p, x)
		if err != nil {
			return nil, err
		}
		ys[i] = y
	}
	return ys, nil
}

func (b *base) cost() (float64, error) {
	ys, err := b.evalAll(b.p)
	if err != nil {
		return 0, err
	}
	return Cost(ys, b.ds)
}

func (b *base) costAt(p []float64) (float64, error) {
	ys, err := b.evalAll(p)
	if err != nil {
		return 0, err
	}
	return Cost(ys, b.ds)
}

// gradAndJacobianSum runs forward/backward/jacobian over every
// sample and accumulates the gradient proxy g = sum_i 2*(y_i-d_i)^T
// J_i and, when wantHessian is set, the Gauss-Newton approximate
// Hessian H = sum_i 2*J_i^T J_i. The factor of 2 is carried on both
// so the damped normal equation (H*(1+lambda))s = -g solves for the
// Gauss-Newton step rather than twice it; g and H are each other's
// matching derivative of the ||y-d||^2 cost (f' = 2*J^T*r, f'' ~=
// 2*J^T*J), not independently-scaled quantities.
func (b *base) gradAndJacobianSum(wantHessian bool) (g []float64, h *mat.Dense, err error) {
	p := b.net.ParamsCount()
	gSum := mat.NewVecDense(p, nil)
	var hSum *mat.Dense
	if wantHessian {
		hSum = mat.NewDense(p, p, nil)
	}

	for i, x := range b.xs {
		y, ferr := b.net.Forward(b.p, x)
		if ferr != nil {
			return nil, nil, ferr
		}
		if berr := b.net.Backward(b.p); berr != nil {
			return nil, nil, berr
		}
		j, jerr := b.net.Jacobian(x)
		if jerr != nil {
			return nil, nil, jerr
		}
		d := b.ds[i]
		residual := mat.NewVecDense(len(y), nil)
		for k := range y {
			residual.SetVec(k, 2*(y[k]-d[k]))
		}
		var contrib mat.VecDense
		contrib.MulVec(j.T(), residual)
		gSum.AddVec(gSum, &contrib)

		if wantHessian {
			var jtj mat.Dense
			jtj.Mul(j.T(), j)
			jtj.Scale(2, &jtj)
			hSum.Add(hSum, &jtj)
		}
	}

	g = make([]float64, p)
	for i := 0; i < p; i++ {
		g[i] = gSum.AtVec(i)
	}
	return g, hSum, nil
}

// grad computes the current gradient without the Hessian.
func (b *base) grad() ([]float64, error) {
	g, _, err := b.gradAndJacobianSum(false)
	return g, err
}

// chooseStep runs the golden-section line search along direction,
// applying trial steps on the shared parameter vector and restoring
// it from a saved copy after each probe, so b.p is bitwise unchanged
// once chooseStep returns. It returns the full step vector
// (alpha*direction).
func (b *base) chooseStep(direction []float64) ([]float64, error) {
	var firstErr error
	phi := func(alpha float64) float64 {
		step := scale(direction, alpha)
		saved := append([]float64(nil), b.p...)
		if err := ApplyStep(b.p, step); err != nil && firstErr == nil {
			firstErr = err
		}
		c, err := b.costAt(b.p)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		copy(b.p, saved)
		return c
	}

	alpha, err := linesearch.ChooseStep(phi, b.ls)
	if firstErr != nil {
		return nil, firstErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLineSearchDivergent, err)
	}
	return scale(direction, alpha), nil
}

func scale(v []float64, alpha float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	floats.Scale(alpha, out)
	return out
}

func gradNorm(g []float64) float64 {
	return floats.Norm(g, 2)
}
