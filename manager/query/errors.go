package query

import (
	"errors"
	"fmt"
)

var (
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrPatternError       = errors.New("pattern error")
	ErrUnknownRelation    = errors.New("unknown relation")
	ErrUnknownField       = errors.New("unknown field")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrInvalidSpec        = errors.New("invalid query spec")
)

// ConstructionError is returned by Build and Compile when a condition can not be part of a plan.
type ConstructionError struct {
	Collection string
	Field      string
	Op         string

	Err error
}

func (e *ConstructionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s.%s: %s", e.Collection, e.Op, e.Err.Error())
	}
	return fmt.Sprintf("%s.%s %s: %s", e.Collection, e.Field, e.Op, e.Err.Error())
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}
