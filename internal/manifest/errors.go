package manifest

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Manifest error codes.
const (
	ErrCodeLoadFailed        = "E004" // file unreadable or unparsable
	ErrCodeNotFound          = "E005" // path not found
	ErrCodeBuildFailed       = "E006" // embedded schema failed to build
	ErrCodeSchema            = "E020" // manifest violates the schema
	ErrCodeUnsupportedFormat = "E021" // unknown file extension
	ErrCodeEnv               = "E022" // bad environment override
)

// LoadError is returned for any manifest that cannot be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(code string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
