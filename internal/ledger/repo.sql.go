package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxPort is the PostgreSQL implementation of AccountPort, scoped to one
// transaction. Composite stores build one per batch.
type TxPort struct {
	tx      pgx.Tx
	touched map[int64]struct{}
}

// NewTxPort wraps a transaction in an account port.
func NewTxPort(tx pgx.Tx) *TxPort {
	return &TxPort{tx: tx, touched: make(map[int64]struct{})}
}

func (p *TxPort) mark(accountID int64) {
	p.touched[accountID] = struct{}{}
}

// Touched lists every account mutated through this port.
func (p *TxPort) Touched() []int64 {
	out := make([]int64, 0, len(p.touched))
	for id := range p.touched {
		out = append(out, id)
	}
	return out
}

const accountColumns = `id, kind, owner_id, name, total_billed, total_paid, pending, version, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.Kind, &acc.OwnerID, &acc.Name,
		&acc.Totals.Billed, &acc.Totals.Paid, &acc.Totals.Pending,
		&acc.Version, &acc.CreatedAt, &acc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// Ensure upserts the aggregate row and locks it for the batch.
func (p *TxPort) Ensure(ctx context.Context, kind Kind, ownerID, name string) (*Account, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("ledger: invalid account kind %q", kind)
	}
	row := p.tx.QueryRow(ctx, `INSERT INTO accounts (kind, owner_id, name, total_billed, total_paid, pending, version, created_at, updated_at)
VALUES ($1, $2, $3, 0, 0, 0, 0, NOW(), NOW())
ON CONFLICT (kind, owner_id) DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), accounts.name)
RETURNING `+accountColumns, kind, ownerID, name)
	return scanAccount(row)
}

// GetByOwner locks and returns an existing aggregate without lines.
func (p *TxPort) GetByOwner(ctx context.Context, kind Kind, ownerID string) (*Account, error) {
	row := p.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE kind=$1 AND owner_id=$2 FOR UPDATE`, kind, ownerID)
	return scanAccount(row)
}

// GetByID locks and returns an existing aggregate without lines.
func (p *TxPort) GetByID(ctx context.Context, id int64) (*Account, error) {
	row := p.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id)
	return scanAccount(row)
}

// AddBillingLine appends a billing line to the account.
func (p *TxPort) AddBillingLine(ctx context.Context, accountID int64, line BillingLine) error {
	_, err := p.tx.Exec(ctx, `INSERT INTO billing_lines (account_id, doc_number, amount, billed_at, status)
VALUES ($1, $2, $3, $4, $5)`, accountID, line.DocNumber, line.Amount, line.Date, line.Status)
	if err != nil {
		return err
	}
	p.mark(accountID)
	return nil
}

// AddPaymentLine appends one copy of a payment movement to the account.
func (p *TxPort) AddPaymentLine(ctx context.Context, accountID int64, line PaymentLine) error {
	direction := line.Direction
	if direction == "" {
		direction = DirectionIn
	}
	_, err := p.tx.Exec(ctx, `INSERT INTO payment_lines (account_id, amount, paid_at, method, submitted_by, remark, reference_id, doc_number, direction)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		accountID, line.Amount, line.Date, line.Method, line.SubmittedBy, line.Remark, line.ReferenceID, line.DocNumber, direction)
	if err != nil {
		return err
	}
	p.mark(accountID)
	return nil
}

// UpdatePaymentsByRef applies the same update to every copy.
func (p *TxPort) UpdatePaymentsByRef(ctx context.Context, ref string, upd PaymentUpdate) (int64, error) {
	tag, err := p.tx.Exec(ctx, `UPDATE payment_lines SET
amount = COALESCE($2, amount),
paid_at = COALESCE($3, paid_at),
method = COALESCE($4, method),
remark = COALESCE($5, remark)
WHERE reference_id = $1`, ref, upd.Amount, upd.Date, upd.Method, upd.Remark)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() > 0 {
		if err := p.markByRef(ctx, ref); err != nil {
			return 0, err
		}
	}
	return tag.RowsAffected(), nil
}

// DeletePaymentsByRef removes every copy of the movement.
func (p *TxPort) DeletePaymentsByRef(ctx context.Context, ref string) (int64, error) {
	if err := p.markByRef(ctx, ref); err != nil {
		return 0, err
	}
	tag, err := p.tx.Exec(ctx, `DELETE FROM payment_lines WHERE reference_id = $1`, ref)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MovePaymentsByRef relocates the movement's line between accounts.
func (p *TxPort) MovePaymentsByRef(ctx context.Context, ref string, fromID, toID int64) error {
	tag, err := p.tx.Exec(ctx, `UPDATE payment_lines SET account_id = $3 WHERE reference_id = $1 AND account_id = $2`, ref, fromID, toID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReferenceNotFound
	}
	p.mark(fromID)
	p.mark(toID)
	return nil
}

// RemoveDocBillingLines drops every billing line tied to a document.
func (p *TxPort) RemoveDocBillingLines(ctx context.Context, docNumber string) ([]int64, error) {
	rows, err := p.tx.Query(ctx, `DELETE FROM billing_lines WHERE doc_number = $1 RETURNING account_id`, docNumber)
	if err != nil {
		return nil, err
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p.mark(id)
	}
	return ids, nil
}

// RemoveDocPaymentLines drops every payment line tied to a document.
func (p *TxPort) RemoveDocPaymentLines(ctx context.Context, docNumber string) ([]int64, error) {
	rows, err := p.tx.Query(ctx, `DELETE FROM payment_lines WHERE doc_number = $1 RETURNING account_id`, docNumber)
	if err != nil {
		return nil, err
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p.mark(id)
	}
	return ids, nil
}

func collectIDs(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *TxPort) markByRef(ctx context.Context, ref string) error {
	rows, err := p.tx.Query(ctx, `SELECT DISTINCT account_id FROM payment_lines WHERE reference_id = $1`, ref)
	if err != nil {
		return err
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return err
	}
	for _, id := range ids {
		p.mark(id)
	}
	return nil
}

const paymentColumns = `id, account_id, amount, paid_at, method, submitted_by, remark, reference_id, doc_number, direction`

// ResolveReference lists every stored copy of a reference id.
func (p *TxPort) ResolveReference(ctx context.Context, ref string) ([]ReferenceCopy, error) {
	rows, err := p.tx.Query(ctx, `SELECT a.id, a.kind, a.owner_id,
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
	return copies, rows.Err()
}

// Lines returns the authoritative line lists of one account.
func (p *TxPort) Lines(ctx context.Context, accountID int64) ([]BillingLine, []PaymentLine, error) {
	return queryLines(ctx, p.tx, accountID)
}

// SetTotals writes recomputed totals and bumps the version.
func (p *TxPort) SetTotals(ctx context.Context, accountID int64, totals Totals, expectVersion int64) error {
	tag, err := p.tx.Exec(ctx, `UPDATE accounts SET total_billed=$2, total_paid=$3, pending=$4, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$5`, accountID, totals.Billed, totals.Paid, totals.Pending, expectVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q queryer, accountID int64) ([]BillingLine, []PaymentLine, error) {
	rows, err := q.Query(ctx, `SELECT id, account_id, doc_number, amount, billed_at, status FROM billing_lines WHERE account_id=$1 ORDER BY billed_at, id`, accountID)
	if err != nil {
		return nil, nil, err
	}
	var bills []BillingLine
	for rows.Next() {
		var b BillingLine
		if err := rows.Scan(&b.ID, &b.AccountID, &b.DocNumber, &b.Amount, &b.Date, &b.Status); err != nil {
			rows.Close()
			return nil, nil, err
		}
		bills = append(bills, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = q.Query(ctx, `SELECT `+paymentColumns+` FROM payment_lines WHERE account_id=$1 ORDER BY paid_at, id`, accountID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var payments []PaymentLine
	for rows.Next() {
		var p PaymentLine
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Amount, &p.Date, &p.Method, &p.SubmittedBy, &p.Remark, &p.ReferenceID, &p.DocNumber, &p.Direction); err != nil {
			return nil, nil, err
		}
		payments = append(payments, p)
	}
	return bills, payments, rows.Err()
}
