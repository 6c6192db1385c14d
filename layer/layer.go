// Package layer implements the per-layer forward/backward/Jacobian
// contract that the network composer and trainers rely on.
//
// Every layer carries hand-written derivatives; there is no
// automatic differentiation here. A layer is stateless with respect
// to Eval (pure prediction) and stateful with respect to the
// Forward/Backward pair, which memoizes whatever is needed to answer
// ChainElement and ChainEnd for the signals of the last Forward call.
package layer

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when a slice length or vector length
// does not match a layer's declared dimensions.
var ErrShapeMismatch = errors.New("layer: shape mismatch")

// ErrProtocol is returned when Backward is called without a prior
// matching Forward, or ChainElement/ChainEnd are queried before
// Backward.
var ErrProtocol = errors.New("layer: protocol violation")

// Layer is a single feed-forward network layer. ParamsCount,
// NeuronsIn and NeuronsOut are the layer's compile-time-constant-like
// dimensions, exposed here as methods since Go has no dependent
// compile-time constants tied to a generic instantiation the way the
// original const-generic formulation did.
type Layer interface {
	// Kind names the layer for LayersInfo() output.
	Kind() string
	// ParamsCount is the number of parameters this layer owns.
	ParamsCount() int
	// NeuronsIn is the layer's input width.
	NeuronsIn() int
	// NeuronsOut is the layer's output width.
	NeuronsOut() int

	// Eval is the stateless, pure forward evaluation used for
	// prediction. It does not mutate any cached layer state.
	Eval(p, x []float64) ([]float64, error)
	// EvalUnchecked skips the shape assertions Eval performs; callers
	// guarantee the preconditions themselves.
	EvalUnchecked(p, x []float64) []float64

	// Forward evaluates the layer and memoizes whatever signals
	// Backward, ChainElement and ChainEnd will need.
	Forward(p, x []float64) ([]float64, error)
	// Backward computes the layer's chain_element from the signals
	// captured by the last matching Forward call.
	Backward(p []float64) error

	// ChainElement is the NeuronsOut x NeuronsIn Jacobian of the
	// layer's output with respect to its input, at the last Forward.
	// Valid only after a matching Backward.
	ChainElement() (*mat.Dense, error)
	// ChainEnd is the NeuronsOut x ParamsCount Jacobian of the
	// layer's output with respect to its own parameters, evaluated at
	// x, the input actually fed into the layer during the last
	// Forward pass. Valid only after a matching Backward.
	ChainEnd(x []float64) (*mat.Dense, error)
}

func checkShape(name string, p, x []float64, paramsCnt, neuronsIn int) error {
	if len(p) != paramsCnt {
		return fmt.Errorf("%s: %w: expected %d params, got %d", name, ErrShapeMismatch, paramsCnt, len(p))
	}
	if len(x) != neuronsIn {
		return fmt.Errorf("%s: %w: expected input of length %d, got %d", name, ErrShapeMismatch, neuronsIn, len(x))
	}
	return nil
}
