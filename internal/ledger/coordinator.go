package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tradewell-erp/tradewell/internal/shared"
)

// AccountPort is the transactional surface of the account aggregate
// store. One instance lives for the duration of one batch and tracks
// every account it touched.
type AccountPort interface {
	// Ensure returns the aggregate for (kind, ownerID), creating an
	// empty one when absent. The row is locked for the batch.
	Ensure(ctx context.Context, kind Kind, ownerID, name string) (*Account, error)
	// GetByOwner locks and returns an existing aggregate without lines.
	GetByOwner(ctx context.Context, kind Kind, ownerID string) (*Account, error)
	// GetByID locks and returns an existing aggregate without lines.
	GetByID(ctx context.Context, id int64) (*Account, error)

	AddBillingLine(ctx context.Context, accountID int64, line BillingLine) error
	AddPaymentLine(ctx context.Context, accountID int64, line PaymentLine) error
	// UpdatePaymentsByRef applies the same update to every copy of the
	// movement and returns how many copies changed.
	UpdatePaymentsByRef(ctx context.Context, ref string, upd PaymentUpdate) (int64, error)
	// DeletePaymentsByRef removes every copy of the movement.
	DeletePaymentsByRef(ctx context.Context, ref string) (int64, error)
	// MovePaymentsByRef relocates the movement's line from one account
	// to another; both sides happen in the enclosing batch.
	MovePaymentsByRef(ctx context.Context, ref string, fromID, toID int64) error
	// RemoveDocBillingLines drops every billing line tied to a business
	// document, across all accounts, returning the accounts hit.
	RemoveDocBillingLines(ctx context.Context, docNumber string) ([]int64, error)
	// RemoveDocPaymentLines drops every payment line tied to a business
	// document, across all accounts, returning the accounts hit.
	RemoveDocPaymentLines(ctx context.Context, docNumber string) ([]int64, error)

	// ResolveReference lists every stored copy of a reference id.
	ResolveReference(ctx context.Context, ref string) ([]ReferenceCopy, error)
	// Lines returns the authoritative line lists of one account.
	Lines(ctx context.Context, accountID int64) ([]BillingLine, []PaymentLine, error)
	// SetTotals writes recomputed totals, failing on a version mismatch.
	SetTotals(ctx context.Context, accountID int64, totals Totals, expectVersion int64) error

	// Touched lists the ids of every account mutated in this batch.
	Touched() []int64
}

// Batch is what a mutation step sees. Stores with more ports (stock,
// documents, sequences) embed this interface.
type Batch interface {
	Accounts() AccountPort
}

// Step is one mutation applied inside an atomic batch.
type Step[B Batch] func(ctx context.Context, batch B) error

// Store opens atomic batches against the underlying document store.
type Store[B Batch] interface {
	Batch(ctx context.Context, fn func(ctx context.Context, batch B) error) error
}

// Coordinator executes an ordered list of mutation steps as one atomic
// unit. Either every step's result becomes durably visible or none do:
// after the steps run, every touched account is recalculated and its
// overdraft policy checked; any failure aborts the whole batch. There
// is no automatic retry.
type Coordinator[B Batch] struct {
	store  Store[B]
	logger *slog.Logger
}

// NewCoordinator builds a Coordinator over a store.
func NewCoordinator[B Batch](store Store[B], logger *slog.Logger) *Coordinator[B] {
	return &Coordinator[B]{store: store, logger: logger}
}

// Execute runs the steps in order inside one batch.
func (c *Coordinator[B]) Execute(ctx context.Context, steps ...Step[B]) error {
	if len(steps) == 0 {
		return nil
	}
	err := c.store.Batch(ctx, func(ctx context.Context, batch B) error {
		for _, step := range steps {
			if err := step(ctx, batch); err != nil {
				return err
			}
		}
		return FinalizeAccounts(ctx, batch.Accounts())
	})
	if err != nil && c.logger != nil && shared.KindOf(err) == shared.KindInternal {
		c.logger.Error("batch aborted", slog.Any("error", err))
	}
	return err
}

// FinalizeAccounts recomputes totals for every touched account and
// enforces each kind's overdraft policy. Runs last in every batch.
func FinalizeAccounts(ctx context.Context, accounts AccountPort) error {
	for _, id := range accounts.Touched() {
		acc, err := accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		bills, payments, err := accounts.Lines(ctx, id)
		if err != nil {
			return err
		}
		totals, err := Recalculate(acc.Kind, bills, payments)
		if err != nil {
			if errors.Is(err, ErrNegativePending) {
				return shared.Wrap(shared.Invariant("pending balance would go negative"), err)
			}
			return err
		}
		if err := accounts.SetTotals(ctx, id, totals, acc.Version); err != nil {
			return err
		}
	}
	return nil
}
