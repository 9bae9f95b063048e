package documents

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/platform/db"
	"github.com/tradewell-erp/tradewell/internal/sequence"
	"github.com/tradewell-erp/tradewell/internal/stock"
)

// Repository provides PostgreSQL backed persistence for documents and
// opens the composite batches their mutations run in.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type pgBatch struct {
	accounts *ledger.TxPort
	stock    stock.TxPort
	seq      sequence.TxPort
	docs     *pgTxPort
}

func (b pgBatch) Accounts() ledger.AccountPort { return b.accounts }
func (b pgBatch) Stock() stock.TxPort          { return b.stock }
func (b pgBatch) Sequences() sequence.TxPort   { return b.seq }
func (b pgBatch) Documents() TxPort            { return b.docs }

// Batch opens one atomic unit over a repeatable-read transaction. All
// four ports share the transaction.
func (r *Repository) Batch(ctx context.Context, fn func(ctx context.Context, batch Batch) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, pgBatch{
			accounts: ledger.NewTxPort(tx),
			stock:    stock.NewTxPort(tx),
			seq:      sequence.NewTxPort(tx),
			docs:     &pgTxPort{tx: tx},
		})
	})
}

type pgTxPort struct {
	tx pgx.Tx
}

const docColumns = `id, namespace, number, kind, status, party_kind, party_id, party_name,
seller_id, seller_name, seller_amount, transport_id, transport_name, transport_amount,
total, doc_date, submitted_by, remark, created_at, updated_at`

func (p *pgTxPort) Insert(ctx context.Context, doc *Document) (int64, error) {
	var id int64
	err := p.tx.QueryRow(ctx, `INSERT INTO documents (namespace, number, kind, status, party_kind, party_id, party_name,
seller_id, seller_name, seller_amount, transport_id, transport_name, transport_amount,
total, doc_date, submitted_by, remark, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
RETURNING id`,
		doc.Kind.Namespace().Name, doc.Number, doc.Kind, doc.Status, doc.PartyKind, doc.PartyID, doc.PartyName,
		doc.SellerID, doc.SellerName, doc.SellerAmount, doc.TransportID, doc.TransportName, doc.TransportAmount,
		doc.Total, doc.Date, doc.SubmittedBy, doc.Remark).Scan(&id)
	if err != nil {
		return 0, err
	}
	if err := p.insertLines(ctx, id, doc.Lines); err != nil {
		return 0, err
	}
	return id, nil
}

func (p *pgTxPort) Update(ctx context.Context, doc *Document) error {
	tag, err := p.tx.Exec(ctx, `UPDATE documents SET party_kind=$2, party_id=$3, party_name=$4,
seller_id=$5, seller_name=$6, seller_amount=$7, transport_id=$8, transport_name=$9, transport_amount=$10,
total=$11, doc_date=$12, submitted_by=$13, remark=$14, updated_at=NOW()
WHERE id=$1`,
		doc.ID, doc.PartyKind, doc.PartyID, doc.PartyName,
		doc.SellerID, doc.SellerName, doc.SellerAmount, doc.TransportID, doc.TransportName, doc.TransportAmount,
		doc.Total, doc.Date, doc.SubmittedBy, doc.Remark)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	if _, err := p.tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id=$1`, doc.ID); err != nil {
		return err
	}
	return p.insertLines(ctx, doc.ID, doc.Lines)
}

func (p *pgTxPort) insertLines(ctx context.Context, docID int64, lines []ProductLine) error {
	for _, line := range lines {
		_, err := p.tx.Exec(ctx, `INSERT INTO document_lines (document_id, item_id, name, brand, category, quantity, unit_price, amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			docID, line.ItemID, line.Name, line.Brand, line.Category, line.Quantity, line.UnitPrice, line.Amount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *pgTxPort) GetByNumberForUpdate(ctx context.Context, number string) (*Document, error) {
	row := p.tx.QueryRow(ctx, `SELECT `+docColumns+` FROM documents WHERE number=$1 FOR UPDATE`, number)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	doc.Lines, err = queryDocLines(ctx, p.tx, doc.ID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *pgTxPort) Delete(ctx context.Context, id int64) error {
	if _, err := p.tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id=$1`, id); err != nil {
		return err
	}
	tag, err := p.tx.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var doc Document
	var namespace string
	err := row.Scan(&doc.ID, &namespace, &doc.Number, &doc.Kind, &doc.Status, &doc.PartyKind, &doc.PartyID, &doc.PartyName,
		&doc.SellerID, &doc.SellerName, &doc.SellerAmount, &doc.TransportID, &doc.TransportName, &doc.TransportAmount,
		&doc.Total, &doc.Date, &doc.SubmittedBy, &doc.Remark, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryDocLines(ctx context.Context, q queryer, docID int64) ([]ProductLine, error) {
	rows, err := q.Query(ctx, `SELECT id, item_id, name, brand, category, quantity, unit_price, amount
FROM document_lines WHERE document_id=$1 ORDER BY id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []ProductLine
	for rows.Next() {
		var l ProductLine
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Name, &l.Brand, &l.Category, &l.Quantity, &l.UnitPrice, &l.Amount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetByNumber returns the committed document with its product lines.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+docColumns+` FROM documents WHERE number=$1`, number)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	doc.Lines, err = queryDocLines(ctx, r.pool, doc.ID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns committed headers of one kind, newest first.
func (r *Repository) List(ctx context.Context, kind Kind, limit, offset int) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+docColumns+` FROM documents WHERE kind=$1
ORDER BY doc_date DESC, id DESC LIMIT $2 OFFSET $3`, kind, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}
