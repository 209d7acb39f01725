package features

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSchema              = errors.New("schema error")
	ErrEmptyVocabulary     = errors.New("empty vocabulary")
	ErrInvalidFeatureValue = errors.New("invalid feature value")
)

// SchemaError reports required columns missing from a raw table.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: missing columns %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// InvalidValueError identifies the cell that could not be used as a feature.
type InvalidValueError struct {
	Column string
	URI    string
	Value  string
	Reason string
	Row    int
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid feature value %q in column %s (row %d, uri %s): %s",
		e.Value, e.Column, e.Row, e.URI, e.Reason)
}

func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidFeatureValue
}
