package roas

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoInputs matches, via errors.Is, a MissingInputError that names every
// table: nothing has been supplied yet.
var ErrNoInputs = errors.New("roas: no inputs supplied")

// MissingInputError reports tables that have not been supplied yet. It is a
// wait condition, not a failure.
type MissingInputError struct {
	Tables []string
}

func (e *MissingInputError) Error() string {
	return "roas: missing inputs: " + strings.Join(e.Tables, ", ")
}

func (e *MissingInputError) Is(target error) bool {
	return target == ErrNoInputs && len(e.Tables) == len(allTables)
}

// ComputationError wraps an unexpected failure in a named pipeline stage.
type ComputationError struct {
	Stage string
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("roas: %s: %v", e.Stage, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
