package worker

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/core"
	"ledgerbook/internal/export"
	"ledgerbook/internal/storage"
)

// SyncWorker appends transactions to the external statement as AMQP sync
// messages arrive. Messages carry only ID and version; the worker reads the
// current row from SQLite so that stale notifications are detected here.
type SyncWorker struct {
	storage *storage.SQLiteRepository
	writer  export.StatementWriter
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer export.StatementWriter) *SyncWorker {
	return &SyncWorker{
		storage: storage,
		writer:  writer,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	txn, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		if core.IsNotFound(err) {
			// Deleted before the message was consumed. Nothing to export.
			slog.WarnContext(ctx, "Transaction gone, skipping export", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if txn.Version > msg.Version {
		// A newer notification is in flight for the current row.
		slog.InfoContext(ctx, "Stale sync message, skipping",
			"id", msg.ID,
			"message_version", msg.Version,
			"current_version", txn.Version)
		return nil
	}

	entry := export.Entry{
		TransactionID: txn.ID,
		Date:          txn.Date,
		Type:          txn.Type,
		Scope:         txn.Scope,
		Account:       w.accountLabel(ctx, txn),
		Category:      txn.Category,
		Description:   txn.Description,
		Amount:        txn.Amount,
	}

	ref, err := w.writer.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("append to statement: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported transaction",
		"id", txn.ID,
		"row_ref", ref,
		"amount_cents", txn.Amount.Cents)

	return nil
}

// accountLabel resolves a display name for the transaction's account.
// Legacy transactions with no account reference fall back to the
// normalized party name carved out of the description.
func (w *SyncWorker) accountLabel(ctx context.Context, txn core.Transaction) string {
	if txn.AccountID == "" {
		return core.NormalizeParty(txn.Description)
	}
	account, err := w.storage.GetAccount(ctx, txn.AccountID)
	if err != nil {
		slog.WarnContext(ctx, "Could not resolve account name for export",
			"transaction_id", txn.ID,
			"account_id", txn.AccountID,
			"error", err)
		return txn.AccountID
	}
	return account.Name
}
