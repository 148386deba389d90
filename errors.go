package meshtool

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for construction-time validation (spec section 7,
// InputMalformed), in the same flat var-block style lvlath's core package
// uses for its sentinel errors (core/types.go).
var (
	// ErrOutOfRangeVertex indicates a triangle referenced a vertex index
	// outside the supplied vertex array.
	ErrOutOfRangeVertex = errors.New("meshtool: triangle references out-of-range vertex")

	// ErrChannelTriangleCount indicates a channel's triangle-triple array
	// does not have one entry per mesh triangle.
	ErrChannelTriangleCount = errors.New("meshtool: channel triangle count does not match mesh triangle count")

	// ErrChannelOutOfRangeSource indicates a channel triple referenced a
	// source index outside that channel's own source array.
	ErrChannelOutOfRangeSource = errors.New("meshtool: channel triangle references out-of-range attribute source")
)

// InvariantError is raised (via panic) when an internal structural
// invariant is violated — an adjacency/history inconsistency that spec
// section 7 classifies as a programming error, not a recoverable
// condition. IsValid surfaces the same class of problem without panicking.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("meshtool: invariant violation: %s", e.Msg)
}

func invariantViolation(format string, args ...interface{}) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
