package executor

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("no matching record")
	ErrCanceled = errors.New("query canceled")
	ErrReadOnly = errors.New("snapshot does not support deletes")
)

func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return nil
}
