// Package initparams generates randomized initial parameter vectors
// for a network.
package initparams

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var errInvalid = errors.New("initparams: invalid argument")

// Uniform fills a parameter slice of length n with values drawn
// uniformly from [lo, hi) using rng.
func Uniform(n int, lo, hi float64, rng *rand.Rand) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("initparams.Uniform: %w: n must be positive, got %d", errInvalid, n)
	}
	if hi <= lo {
		return nil, fmt.Errorf("initparams.Uniform: %w: hi must be greater than lo, got lo=%f hi=%f", errInvalid, lo, hi)
	}

	p := make([]float64, n)
	for i := range p {
		p[i] = rng.Float64()*(hi-lo) + lo
	}
	return p, nil
}

// Xavier fills a parameter slice of length n the way the examples
// empirically find works best for gradient-based training: uniformly
// from [-epsilon, epsilon), where epsilon = sqrt(6) /
// sqrt(fanIn+fanOut).
func Xavier(n, fanIn, fanOut int, rng *rand.Rand) ([]float64, error) {
	if fanIn <= 0 || fanOut <= 0 {
		return nil, fmt.Errorf("initparams.Xavier: %w: fan-in/fan-out must be positive, got %d/%d", errInvalid, fanIn, fanOut)
	}
	epsilon := math.Sqrt(6.0) / math.Sqrt(float64(fanIn+fanOut))
	return Uniform(n, -epsilon, epsilon, rng)
}
