// Package algo implements the graph algorithms of spec §4.4–4.5 over a
// storage.Store's read interface: Dijkstra shortest path and
// breadth-first variable-length expansion, plus its derived queries.
package algo

import (
	"errors"
	"fmt"

	"github.com/dong-qiu/graphdb/pkg/graphid"
)

// Algorithm-kind sentinels (spec §7's "Algorithm kinds").
var (
	ErrPathNotFound      = errors.New("algo: path not found")
	ErrInvalidParameters = errors.New("algo: invalid parameters")
	ErrAlgorithmFailed   = errors.New("algo: algorithm failed")
)

// PathNotFoundError records the endpoints Dijkstra could not connect
// (spec §4.4: "the destination is never popped").
type PathNotFoundError struct {
	Start graphid.ID
	End   graphid.ID
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("algo: no path from %s to %s", e.Start, e.End)
}
func (e *PathNotFoundError) Unwrap() error { return ErrPathNotFound }

// InvalidParametersError records a malformed algorithm input, e.g. a
// negative or inverted VLE length bound.
type InvalidParametersError struct {
	Reason string
}

func (e *InvalidParametersError) Error() string { return "algo: invalid parameters: " + e.Reason }
func (e *InvalidParametersError) Unwrap() error { return ErrInvalidParameters }

// AlgorithmFailedError wraps a failure surfaced by the underlying
// storage reads an algorithm depends on.
type AlgorithmFailedError struct {
	Op  string
	Err error
}

func (e *AlgorithmFailedError) Error() string {
	return fmt.Sprintf("algo: %s failed: %v", e.Op, e.Err)
}
func (e *AlgorithmFailedError) Unwrap() error { return e.Err }
