package stock

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for products and
// the stock ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type pgBatch struct {
	accounts *ledger.TxPort
	stock    *pgTxPort
}

func (b pgBatch) Accounts() ledger.AccountPort { return b.accounts }
func (b pgBatch) Stock() TxPort                { return b.stock }

// Batch opens one atomic unit over a repeatable-read transaction.
func (r *Repository) Batch(ctx context.Context, fn func(ctx context.Context, batch Batch) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, pgBatch{accounts: ledger.NewTxPort(tx), stock: &pgTxPort{tx: tx}})
	})
}

// NewTxPort wraps a transaction in a stock port for composite stores.
func NewTxPort(tx pgx.Tx) TxPort {
	return &pgTxPort{tx: tx}
}

type pgTxPort struct {
	tx pgx.Tx
}

func (p *pgTxPort) GetProductForUpdate(ctx context.Context, itemID string) (*Product, error) {
	row := p.tx.QueryRow(ctx, `SELECT item_id, name, brand, category, quantity, updated_at FROM products WHERE item_id=$1 FOR UPDATE`, itemID)
	var prod Product
	err := row.Scan(&prod.ItemID, &prod.Name, &prod.Brand, &prod.Category, &prod.Quantity, &prod.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownItem
	}
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

func (p *pgTxPort) UpsertProduct(ctx context.Context, prod Product) error {
	_, err := p.tx.Exec(ctx, `INSERT INTO products (item_id, name, brand, category, quantity, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (item_id) DO UPDATE SET
name = COALESCE(NULLIF(EXCLUDED.name, ''), products.name),
brand = COALESCE(NULLIF(EXCLUDED.brand, ''), products.brand),
category = COALESCE(NULLIF(EXCLUDED.category, ''), products.category),
updated_at = NOW()`,
		prod.ItemID, prod.Name, prod.Brand, prod.Category, prod.Quantity)
	return err
}

func (p *pgTxPort) SetQuantity(ctx context.Context, itemID string, qty float64) error {
	tag, err := p.tx.Exec(ctx, `UPDATE products SET quantity=$2, updated_at=NOW() WHERE item_id=$1`, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownItem
	}
	return nil
}

func (p *pgTxPort) InsertEntry(ctx context.Context, e LedgerEntry) (int64, error) {
	var id int64
	err := p.tx.QueryRow(ctx, `INSERT INTO stock_entries (item_id, quantity, source_type, doc_number, submitted_by, remark, entry_date, snapshot_qty)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		e.ItemID, e.Quantity, e.Source, e.DocNumber, e.SubmittedBy, e.Remark, e.Date, e.Snapshot).Scan(&id)
	return id, err
}

func (p *pgTxPort) EntriesByDoc(ctx context.Context, docNumber string) ([]LedgerEntry, error) {
	rows, err := p.tx.Query(ctx, `SELECT id, item_id, quantity, source_type, doc_number, submitted_by, remark, entry_date, snapshot_qty
FROM stock_entries WHERE doc_number=$1 ORDER BY id`, docNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Quantity, &e.Source, &e.DocNumber, &e.SubmittedBy, &e.Remark, &e.Date, &e.Snapshot); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *pgTxPort) DeleteEntriesByDoc(ctx context.Context, docNumber string) error {
	_, err := p.tx.Exec(ctx, `DELETE FROM stock_entries WHERE doc_number=$1`, docNumber)
	return err
}

// GetProduct returns the committed product row.
func (r *Repository) GetProduct(ctx context.Context, itemID string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT item_id, name, brand, category, quantity, updated_at FROM products WHERE item_id=$1`, itemID)
	var prod Product
	err := row.Scan(&prod.ItemID, &prod.Name, &prod.Brand, &prod.Category, &prod.Quantity, &prod.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownItem
	}
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

// History returns a date-ordered page of ledger entries joined with
// current product identity, restartable from a cursor.
func (r *Repository) History(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, *Cursor, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT e.id, e.item_id, e.quantity, e.source_type, e.doc_number, e.submitted_by, e.remark, e.entry_date, e.snapshot_qty,
p.name, p.brand, p.category
FROM stock_entries e JOIN products p ON p.item_id = e.item_id
WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.ItemID != "" {
		query += ` AND e.item_id = ` + arg(filter.ItemID)
	}
	if !filter.From.IsZero() {
		query += ` AND e.entry_date >= ` + arg(filter.From)
	}
	if !filter.To.IsZero() {
		query += ` AND e.entry_date <= ` + arg(filter.To)
	}
	if filter.After != nil {
		query += ` AND (e.entry_date, e.id) > (` + arg(filter.After.Date) + `, ` + arg(filter.After.ID) + `)`
	}
	query += ` ORDER BY e.entry_date, e.id LIMIT ` + arg(limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Quantity, &e.Source, &e.DocNumber, &e.SubmittedBy, &e.Remark, &e.Date, &e.Snapshot,
			&e.Name, &e.Brand, &e.Category); err != nil {
			return nil, nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	var next *Cursor
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		next = &Cursor{Date: last.Date, ID: last.ID}
	}
	return entries, next, nil
}
