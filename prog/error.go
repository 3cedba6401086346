package prog

import (
	"errors"
	"fmt"
)

// Common compilation and construction errors.
var (
	// ErrInvalidState indicates an invalid instruction id was encountered.
	ErrInvalidState = errors.New("invalid program instruction id")

	// ErrInvalidPattern indicates the regex pattern is invalid or unsupported.
	ErrInvalidPattern = errors.New("invalid regex pattern")

	// ErrTooComplex indicates the pattern is too complex to compile.
	ErrTooComplex = errors.New("pattern too complex")

	// ErrCompilation indicates a general program compilation failure.
	ErrCompilation = errors.New("program compilation failed")

	// ErrInvalidConfig indicates invalid configuration was provided.
	ErrInvalidConfig = errors.New("invalid compiler configuration")

	// ErrNoMatch indicates no match was found. Not itself an error condition;
	// engines return it wrapped only where an error return is unavoidable.
	ErrNoMatch = errors.New("no match found")
)

// CompileError wraps compilation errors with the offending pattern.
type CompileError struct {
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("program compilation failed for pattern %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("program compilation failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// BuildError represents an error raised while assembling a Program via the
// Builder API, optionally pinned to the instruction id under construction.
type BuildError struct {
	Message string
	InstID  ID
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.InstID != InvalidID {
		return fmt.Sprintf("program build error at inst %d: %s", e.InstID, e.Message)
	}
	return fmt.Sprintf("program build error: %s", e.Message)
}
