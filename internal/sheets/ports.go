package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// TransactionMirror keeps an external copy of the transaction list, one row
// per transaction keyed by its id.
type TransactionMirror interface {
	// Upsert rewrites the row for tx.ID, appending one if none exists.
	Upsert(ctx context.Context, tx core.Transaction) error
	// Remove clears the row for id. An unknown id is not an error.
	Remove(ctx context.Context, id string) error
}
