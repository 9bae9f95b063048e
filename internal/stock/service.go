package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/shared"
)

// ReadPort is the committed-state read surface.
type ReadPort interface {
	GetProduct(ctx context.Context, itemID string) (*Product, error)
	History(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, *Cursor, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes the stock operations not owned by a business
// document: opening entries and the merged movement history.
type Service struct {
	coord  *ledger.Coordinator[Batch]
	reads  ReadPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(coord *ledger.Coordinator[Batch], reads ReadPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{coord: coord, reads: reads, audit: audit, logger: logger}
}

// OpeningInput registers a product with its opening quantity.
type OpeningInput struct {
	ItemID      string
	Name        string
	Brand       string
	Category    string
	Quantity    float64
	SubmittedBy string
	Remark      string
	Date        time.Time
}

// SetOpening creates the product if needed and records an opening
// ledger entry for its starting count.
func (s *Service) SetOpening(ctx context.Context, in OpeningInput) (LedgerEntry, error) {
	if in.ItemID == "" {
		return LedgerEntry{}, shared.Validation("itemId", "item id required")
	}
	if in.Quantity <= 0 {
		return LedgerEntry{}, shared.Validation("quantity", "opening quantity must be positive")
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	var entry LedgerEntry
	err := s.coord.Execute(ctx, func(ctx context.Context, b Batch) error {
		var err error
		entry, err = Apply(ctx, b.Stock(), ApplyInput{
			ItemID: in.ItemID, Name: in.Name, Brand: in.Brand, Category: in.Category,
			Quantity: in.Quantity, Source: SourceOpening,
			SubmittedBy: in.SubmittedBy, Remark: in.Remark, Date: date,
		})
		return err
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	s.recordAudit(ctx, in.SubmittedBy, "stock.opening", in.ItemID, map[string]any{"quantity": in.Quantity})
	return entry, nil
}

// History returns a date-ordered, restartable page of movements across
// all five source types, joined with current product identity.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, *Cursor, error) {
	return s.reads.History(ctx, filter)
}

// GetProduct returns a product's current identity and count.
func (s *Service) GetProduct(ctx context.Context, itemID string) (*Product, error) {
	prod, err := s.reads.GetProduct(ctx, itemID)
	if errors.Is(err, ErrUnknownItem) {
		return nil, shared.Wrap(shared.NotFound(fmt.Sprintf("item %s not found", itemID)), err)
	}
	return prod, err
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor, Action: action, Entity: "stock", EntityID: entityID, Meta: meta}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}
