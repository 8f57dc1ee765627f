package storage

import (
	"errors"
	"fmt"

	"github.com/dong-qiu/graphdb/pkg/graphid"
)

// Sentinel error kinds, matched with errors.Is. Structured errors below
// wrap these so a caller can either pattern-match the kind or read the
// payload on the concrete type.
var (
	ErrVertexNotFound    = errors.New("storage: vertex not found")
	ErrEdgeNotFound      = errors.New("storage: edge not found")
	ErrLabelNotFound     = errors.New("storage: label not found")
	ErrVertexHasEdges    = errors.New("storage: vertex has incident edges")
	ErrCounterOverflow   = errors.New("storage: counter overflow")
	ErrTransactionClosed = errors.New("storage: transaction already closed")
)

// NotFoundError carries the missing identifier alongside a
// ErrVertexNotFound / ErrEdgeNotFound / ErrLabelNotFound sentinel.
type NotFoundError struct {
	Sentinel error
	ID       graphid.ID
	Label    string
}

func (e *NotFoundError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s: %q", e.Sentinel, e.Label)
	}
	return fmt.Sprintf("%s: %s", e.Sentinel, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Sentinel }

// KvError wraps an underlying key-value store failure.
type KvError struct {
	Op  string
	Err error
}

func (e *KvError) Error() string { return fmt.Sprintf("storage: kv error during %s: %v", e.Op, e.Err) }
func (e *KvError) Unwrap() error { return e.Err }

// SerializationError wraps a failure to encode or decode a stored
// record.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("storage: serialization error during %s: %v", e.Op, e.Err)
}
func (e *SerializationError) Unwrap() error { return e.Err }
