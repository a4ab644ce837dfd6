package export

import (
	"context"
	"time"

	"ledgerbook/internal/core"
)

// Entry is one statement row derived from a transaction. Account holds the
// display name of the instrument or party the transaction was booked against.
type Entry struct {
	TransactionID string
	Date          time.Time
	Type          core.TransactionType
	Scope         core.Scope
	Account       string
	Category      string
	Description   string
	Amount        core.Money
}

// Ports for outbound adapters.
type (
	StatementWriter interface {
		Append(ctx context.Context, e Entry) (rowRef string, err error)
	}
)
