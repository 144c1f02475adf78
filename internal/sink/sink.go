// Package sink persists flattened candidate rows.
package sink

import (
	"context"
	"errors"
)

// ErrColumnMismatch is returned when a row does not have one value per column.
var ErrColumnMismatch = errors.New("row length does not match column count")

// Sink appends flattened rows ordered like record.Columns.
type Sink interface {
	AppendRow(ctx context.Context, values []string) error
	Close() error
}
