package conversion

import (
	"errors"
	"fmt"
)

// ErrNoBinding is wrapped by every NoBindingError.
var ErrNoBinding = errors.New("no binding")

// Side names the tree a NoBindingError was raised for.
type Side string

const (
	SideModel Side = "model"
	SideView  Side = "view"
)

// NoBindingError reports a position translation that found no bound
// ancestor. It is a programmer error: converters must bind the containers
// they create before positions inside them are mapped.
type NoBindingError struct {
	Side   Side
	NodeID uint64
}

func (e *NoBindingError) Error() string {
	return fmt.Sprintf("no %s ancestor of node %d is bound", e.Side, e.NodeID)
}

func (e *NoBindingError) Unwrap() error { return ErrNoBinding }
