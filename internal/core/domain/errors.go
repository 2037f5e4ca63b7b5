package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMaterialFound means every sub-question (or every partition) came
	// back empty. The only hard failure the pipeline reports to users.
	ErrNoMaterialFound = errors.New("no material found")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrGeneration wraps text-generation failures, which this layer does not retry.
	ErrGeneration = errors.New("generation failure")
	ErrTemporary  = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
