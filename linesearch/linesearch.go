// Package linesearch implements golden-section bracketed
// minimization along a direction, shared by the GD and CG trainers.
package linesearch

import (
	"errors"
	"fmt"
)

// ErrDivergent is returned when the bracket-expansion phase exceeds
// its configured cap without finding an upper bound on the minimum.
var ErrDivergent = errors.New("linesearch: bracket expansion diverged")

// phi2 is the square of the golden ratio, used to expand the
// bracket. rphi is its reciprocal, used to place the interior probes.
const (
	phi2 = 2.618033988749894848207
	rphi = 0.618033988749894848207
)

// Options configures choose_step's constants. The zero value is
// invalid; use DefaultOptions.
type Options struct {
	// P0 is the initial bracket step.
	P0 float64
	// Eps is the bracket-width convergence tolerance.
	Eps float64
	// MaxBracketExpansions caps the unbounded bracket-expansion loop
	// spec 4.3/9.5 calls out; exceeding it returns ErrDivergent.
	MaxBracketExpansions int
}

// DefaultOptions returns the spec's default line-search constants.
func DefaultOptions() Options {
	return Options{
		P0:                   1e-6,
		Eps:                  1e-6,
		MaxBracketExpansions: 1000,
	}
}

// Phi is a scalar objective along a direction: Phi(alpha) = cost(p +
// alpha*direction).
type Phi func(alpha float64) float64

// ChooseStep performs golden-section minimization of phi over alpha
// >= 0 and returns the optimal step length alpha* found. Callers
// scale the returned alpha by their direction vector to get the full
// step. phi must be pure: ChooseStep itself does not mutate any
// external state, so its caller is responsible for any apply/revert
// around probes (see train.Cost/ApplyStep/RevertStep).
func ChooseStep(phi Phi, opts Options) (float64, error) {
	fx1 := phi(0)

	x1, x2 := 0.0, opts.P0
	expansions := 0
	for phi(x2) <= fx1 {
		x2 = x1 + (x2-x1)*phi2
		expansions++
		if expansions > opts.MaxBracketExpansions {
			return 0, fmt.Errorf("linesearch.ChooseStep: %w: exceeded %d expansions", ErrDivergent, opts.MaxBracketExpansions)
		}
	}

	x3 := x2 - (x2-x1)*rphi
	x4 := x1 + (x2-x1)*rphi
	fx3 := phi(x3)
	fx4 := phi(x4)

	for absFloat(x1-x2) > opts.Eps {
		if fx3 < fx4 {
			x2 = x4
			fx4 = fx3
			x3 = x2 - (x2-x1)*rphi
			x4 = x1 + (x2-x1)*rphi
			fx3 = phi(x3)
		} else {
			x1 = x3
			fx3 = fx4
			x3 = x2 - (x2-x1)*rphi
			x4 = x1 + (x2-x1)*rphi
			fx4 = phi(x4)
		}
	}

	return (x1 + x2) / 2, nil
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
