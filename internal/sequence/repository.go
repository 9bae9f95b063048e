package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed counters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NewTxPort wraps a transaction in a counter port for composite stores.
func NewTxPort(tx pgx.Tx) TxPort {
	return &pgTxPort{tx: tx}
}

type pgTxPort struct {
	tx pgx.Tx
}

func (p *pgTxPort) Increment(ctx context.Context, namespace string) (int64, error) {
	var seq int64
	err := p.tx.QueryRow(ctx, `INSERT INTO document_sequences (namespace, seq)
VALUES ($1, 1)
ON CONFLICT (namespace)
DO UPDATE SET seq = document_sequences.seq + 1
RETURNING seq`, namespace).Scan(&seq)
	return seq, err
}

func (p *pgTxPort) Raise(ctx context.Context, namespace string, floor int64) (int64, error) {
	var seq int64
	err := p.tx.QueryRow(ctx, `INSERT INTO document_sequences (namespace, seq)
VALUES ($1, $2)
ON CONFLICT (namespace)
DO UPDATE SET seq = GREATEST(document_sequences.seq, EXCLUDED.seq)
RETURNING seq`, namespace, floor).Scan(&seq)
	return seq, err
}

func (p *pgTxPort) Exists(ctx context.Context, namespace, id string) (bool, error) {
	var exists bool
	err := p.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE namespace=$1 AND number=$2)`, namespace, id).Scan(&exists)
	return exists, err
}

func (p *pgTxPort) Numbers(ctx context.Context, namespace string) ([]string, error) {
	rows, err := p.tx.Query(ctx, `SELECT number FROM documents WHERE namespace=$1`, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// Peek returns the id the namespace would issue next. Advisory only:
// another writer may claim it first.
func (r *Repository) Peek(ctx context.Context, ns Namespace) (string, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `SELECT seq FROM document_sequences WHERE namespace=$1`, ns.Name).Scan(&seq)
	if errors.Is(err, pgx.ErrNoRows) {
		seq = 0
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", ns.Prefix, seq+1), nil
}

// IsUniqueViolation reports whether err is a unique-constraint failure,
// used by callers that retry number claims on conflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
