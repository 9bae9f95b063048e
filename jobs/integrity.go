package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/tradewell-erp/tradewell/internal/ledger"
)

// tolerance absorbs float accumulation noise when comparing totals.
const tolerance = 1e-6

// IntegrityScanner recomputes every aggregate's totals from its line
// lists and reports drift against the stored values. Read-only: drift
// is logged for operators, never silently repaired.
type IntegrityScanner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewIntegrityScanner constructs a scanner.
func NewIntegrityScanner(pool *pgxpool.Pool, logger *slog.Logger) *IntegrityScanner {
	return &IntegrityScanner{pool: pool, logger: logger}
}

// HandleLedgerIntegrity processes TaskLedgerIntegrity tasks.
func (s *IntegrityScanner) HandleLedgerIntegrity(ctx context.Context, t *asynq.Task) error {
	var payload IntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	drifted, scanned, err := s.ScanAccounts(ctx, ledger.Kind(payload.Kind))
	if err != nil {
		return err
	}
	s.logger.Info("ledger integrity scan done",
		slog.Int("scanned", scanned), slog.Int("drifted", drifted))
	return nil
}

// ScanAccounts checks every aggregate of the kind (all kinds when
// empty) and returns the drift and scan counts.
func (s *IntegrityScanner) ScanAccounts(ctx context.Context, kind ledger.Kind) (drifted, scanned int, err error) {
	query := `SELECT id, kind, total_billed, total_paid, pending FROM accounts`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind=$1`
		args = append(args, kind)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	type header struct {
		id     int64
		kind   ledger.Kind
		stored ledger.Totals
	}
	var headers []header
	for rows.Next() {
		var h header
		if err := rows.Scan(&h.id, &h.kind, &h.stored.Billed, &h.stored.Paid, &h.stored.Pending); err != nil {
			return 0, 0, err
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	var driftCount, scanCount atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, h := range headers {
		g.Go(func() error {
			bills, payments, err := s.accountLines(gctx, h.id)
			if err != nil {
				return err
			}
			scanCount.Add(1)
			computed, err := ledger.Recalculate(h.kind, bills, payments)
			if err != nil {
				// A stored aggregate violating its own overdraft policy is
				// itself drift worth reporting.
				driftCount.Add(1)
				s.logger.Warn("aggregate violates policy",
					slog.Int64("account", h.id), slog.String("kind", string(h.kind)), slog.Any("error", err))
				return nil
			}
			if differs(h.stored, computed) {
				driftCount.Add(1)
				s.logger.Warn("aggregate totals drifted",
					slog.Int64("account", h.id), slog.String("kind", string(h.kind)),
					slog.Float64("storedPending", h.stored.Pending),
					slog.Float64("computedPending", computed.Pending))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(driftCount.Load()), int(scanCount.Load()), err
	}
	return int(driftCount.Load()), int(scanCount.Load()), nil
}

func (s *IntegrityScanner) accountLines(ctx context.Context, accountID int64) ([]ledger.BillingLine, []ledger.PaymentLine, error) {
	rows, err := s.pool.Query(ctx, `SELECT amount FROM billing_lines WHERE account_id=$1`, accountID)
	if err != nil {
		return nil, nil, err
	}
	var bills []ledger.BillingLine
	for rows.Next() {
		var b ledger.BillingLine
		if err := rows.Scan(&b.Amount); err != nil {
			rows.Close()
			return nil, nil, err
		}
		bills = append(bills, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = s.pool.Query(ctx, `SELECT amount, direction FROM payment_lines WHERE account_id=$1`, accountID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var payments []ledger.PaymentLine
	for rows.Next() {
		var p ledger.PaymentLine
		if err := rows.Scan(&p.Amount, &p.Direction); err != nil {
			return nil, nil, err
		}
		payments = append(payments, p)
	}
	return bills, payments, rows.Err()
}

// HandleStockVerify processes TaskStockVerify tasks: each product's
// count must equal the sum of its ledger entries.
func (s *IntegrityScanner) HandleStockVerify(ctx context.Context, _ *asynq.Task) error {
	rows, err := s.pool.Query(ctx, `SELECT p.item_id, p.quantity, COALESCE(SUM(e.quantity), 0)
FROM products p LEFT JOIN stock_entries e ON e.item_id = p.item_id
GROUP BY p.item_id, p.quantity`)
	if err != nil {
		return err
	}
	defer rows.Close()
	var drifted, scanned int
	for rows.Next() {
		var itemID string
		var stored, computed float64
		if err := rows.Scan(&itemID, &stored, &computed); err != nil {
			return err
		}
		scanned++
		if math.Abs(stored-computed) > tolerance {
			drifted++
			s.logger.Warn("stock count drifted",
				slog.String("item", itemID),
				slog.Float64("stored", stored), slog.Float64("computed", computed))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.logger.Info("stock verification done",
		slog.Int("scanned", scanned), slog.Int("drifted", drifted))
	return nil
}

func differs(a, b ledger.Totals) bool {
	return math.Abs(a.Billed-b.Billed) > tolerance ||
		math.Abs(a.Paid-b.Paid) > tolerance ||
		math.Abs(a.Pending-b.Pending) > tolerance
}
