// Package tx defines transaction boundaries independent of the database driver.
package tx

import (
	"context"
)

// Manager runs fn inside a transaction; a returned error rolls it back.
// Nested calls reuse the transaction already in ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions, used for consistent ledger reads.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
