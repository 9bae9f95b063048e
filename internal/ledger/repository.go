package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewell-erp/tradewell/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for account
// aggregates. Mutations only happen inside a Batch; reads outside a
// batch see the last committed snapshot.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type pgBatch struct {
	accounts *TxPort
}

func (b pgBatch) Accounts() AccountPort { return b.accounts }

// Batch opens one atomic unit over a repeatable-read transaction.
func (r *Repository) Batch(ctx context.Context, fn func(ctx context.Context, batch Batch) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, pgBatch{accounts: NewTxPort(tx)})
	})
}

// Snapshot loads an aggregate with its full line lists, without locks.
func (r *Repository) Snapshot(ctx context.Context, kind Kind, ownerID string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE kind=$1 AND owner_id=$2`, kind, ownerID)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, err
	}
	bills, payments, err := queryLines(ctx, r.pool, acc.ID)
	if err != nil {
		return nil, err
	}
	acc.Bills = bills
	acc.Payments = payments
	return acc, nil
}

// ListAccounts returns aggregate headers of one kind, ordered by owner.
func (r *Repository) ListAccounts(ctx context.Context, kind Kind) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE kind=$1 ORDER BY owner_id`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.Kind, &acc.OwnerID, &acc.Name,
			&acc.Totals.Billed, &acc.Totals.Paid, &acc.Totals.Pending,
			&acc.Version, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// FindReference resolves a reference id outside any batch.
func (r *Repository) FindReference(ctx context.Context, ref string) ([]ReferenceCopy, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.kind, a.owner_id,
p.id, p.account_id, p.amount, p.paid_at, p.method, p.submitted_by, p.remark, p.reference_id, p.doc_number, p.direction
FROM payment_lines p JOIN accounts a ON a.id = p.account_id
WHERE p.reference_id = $1 ORDER BY p.id`, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var copies []ReferenceCopy
	for rows.Next() {
		var c ReferenceCopy
		if err := rows.Scan(&c.AccountID, &c.Kind, &c.OwnerID,
			&c.Line.ID, &c.Line.AccountID, &c.Line.Amount, &c.Line.Date, &c.Line.Method,
			&c.Line.SubmittedBy, &c.Line.Remark, &c.Line.ReferenceID, &c.Line.DocNumber, &c.Line.Direction); err != nil {
			return nil, err
		}
		copies = append(copies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(copies) == 0 {
		return nil, ErrReferenceNotFound
	}
	return copies, nil
}

// IsNotFound reports whether err marks a missing aggregate or reference.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrReferenceNotFound)
}
