package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/sequence"
	"github.com/tradewell-erp/tradewell/internal/shared"
	"github.com/tradewell-erp/tradewell/internal/stock"
)

// TxPort is the transactional surface of the document store.
type TxPort interface {
	// Insert stores the document with its product lines and returns the id.
	Insert(ctx context.Context, doc *Document) (int64, error)
	// Update rewrites the header and replaces the product lines.
	Update(ctx context.Context, doc *Document) error
	// GetByNumberForUpdate locks and returns the document with lines.
	GetByNumberForUpdate(ctx context.Context, number string) (*Document, error)
	// Delete removes the document row and its product lines.
	Delete(ctx context.Context, id int64) error
}

// Batch is the batch surface for document mutations: account
// aggregates, the stock ledger, number sequences and the document rows
// all move inside one atomic unit.
type Batch interface {
	ledger.Batch
	Stock() stock.TxPort
	Sequences() sequence.TxPort
	Documents() TxPort
}

// ReadPort is the committed-state read surface.
type ReadPort interface {
	GetByNumber(ctx context.Context, number string) (*Document, error)
	List(ctx context.Context, kind Kind, limit, offset int) ([]Document, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the document lifecycle. Every mutation runs as one
// batch: the document row, its stock entries, its billing lines and any
// embedded payment commit together or not at all.
type Service struct {
	coord  *ledger.Coordinator[Batch]
	reads  ReadPort
	gen    sequence.Generator
	minter *ledger.Minter
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(coord *ledger.Coordinator[Batch], reads ReadPort, minter *ledger.Minter, audit AuditPort, logger *slog.Logger) *Service {
	if minter == nil {
		minter = ledger.NewMinter(nil)
	}
	return &Service{coord: coord, reads: reads, minter: minter, audit: audit, logger: logger}
}

// Create stores a new document and applies its stock and account
// effects. The number is claimed inside the batch; a caller-supplied
// candidate is honored when free.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Document, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	doc := buildDocument(in)

	var ref string
	if in.Payment != nil {
		ref = s.minter.Mint(ledger.RefPayment)
	}
	err := s.coord.Execute(ctx, func(ctx context.Context, b Batch) error {
		number, err := s.gen.Next(ctx, b.Sequences(), in.Kind.Namespace(), in.Number)
		if err != nil {
			return err
		}
		doc.Number = number
		id, err := b.Documents().Insert(ctx, doc)
		if err != nil {
			if sequence.IsUniqueViolation(err) {
				return shared.Wrap(shared.Invariant(fmt.Sprintf("document number %s already claimed", number)), err)
			}
			return err
		}
		doc.ID = id
		if err := applyStock(ctx, b.Stock(), doc); err != nil {
			return err
		}
		return applyMoney(ctx, b.Accounts(), doc, in.Payment, ref)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, in.SubmittedBy, "documents.create", doc.Number, map[string]any{
		"kind": doc.Kind, "party": doc.PartyID, "total": doc.Total,
	})
	return doc, nil
}

// Edit replaces a document's content: old stock and billing effects are
// reversed, the header and lines rewritten, and the new effects applied
// in the same batch. Payment movements linked to the document survive
// the edit untouched. Edits are repeatable.
func (s *Service) Edit(ctx context.Context, number string, in EditInput) (*Document, error) {
	if err := validateEdit(in); err != nil {
		return nil, err
	}
	var doc *Document
	err := s.coord.Execute(ctx, func(ctx context.Context, b Batch) error {
		existing, err := b.Documents().GetByNumberForUpdate(ctx, number)
		if errors.Is(err, ErrDocumentNotFound) {
			return shared.Wrap(shared.NotFound(fmt.Sprintf("document %s not found", number)), err)
		}
		if err != nil {
			return err
		}
		if err := stock.Reverse(ctx, b.Stock(), number); err != nil {
			return err
		}
		if _, err := b.Accounts().RemoveDocBillingLines(ctx, number); err != nil {
			return err
		}

		doc = applyEdit(existing, in)
		if err := b.Documents().Update(ctx, doc); err != nil {
			return err
		}
		if err := applyStock(ctx, b.Stock(), doc); err != nil {
			return err
		}
		return applyMoney(ctx, b.Accounts(), doc, nil, "")
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, in.SubmittedBy, "documents.edit", number, map[string]any{"total": doc.Total})
	return doc, nil
}

// Delete removes the document and every trace of it: stock entries are
// reversed, billing lines dropped, and all payment movements carrying
// the number deleted, cash copies included. Aborts if the stock
// reversal would underflow any product.
func (s *Service) Delete(ctx context.Context, number, actor string) error {
	err := s.coord.Execute(ctx, func(ctx context.Context, b Batch) error {
		existing, err := b.Documents().GetByNumberForUpdate(ctx, number)
		if errors.Is(err, ErrDocumentNotFound) {
			return shared.Wrap(shared.NotFound(fmt.Sprintf("document %s not found", number)), err)
		}
		if err != nil {
			return err
		}
		if err := stock.Reverse(ctx, b.Stock(), number); err != nil {
			return err
		}
		if _, err := b.Accounts().RemoveDocBillingLines(ctx, number); err != nil {
			return err
		}
		if _, err := b.Accounts().RemoveDocPaymentLines(ctx, number); err != nil {
			return err
		}
		return b.Documents().Delete(ctx, existing.ID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "documents.delete", number, nil)
	return nil
}

// Get returns the committed document with its product lines.
func (s *Service) Get(ctx context.Context, number string) (*Document, error) {
	doc, err := s.reads.GetByNumber(ctx, number)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, shared.Wrap(shared.NotFound(fmt.Sprintf("document %s not found", number)), err)
	}
	return doc, err
}

// List returns committed document headers of one kind, newest first.
func (s *Service) List(ctx context.Context, kind Kind, limit, offset int) ([]Document, error) {
	if !kind.Valid() {
		return nil, shared.Validation("kind", "unknown document kind")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.reads.List(ctx, kind, limit, offset)
}

// applyStock writes one stock entry per product line.
func applyStock(ctx context.Context, tx stock.TxPort, doc *Document) error {
	source := stockSource(doc.Kind)
	for _, line := range doc.Lines {
		delta := stockDelta(doc.Kind, doc.PartyKind, line.Quantity)
		if delta == 0 {
			continue
		}
		_, err := stock.Apply(ctx, tx, stock.ApplyInput{
			ItemID:      line.ItemID,
			Name:        line.Name,
			Brand:       line.Brand,
			Category:    line.Category,
			Quantity:    delta,
			Source:      source,
			DocNumber:   doc.Number,
			SubmittedBy: doc.SubmittedBy,
			Remark:      doc.Remark,
			Date:        doc.Date,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// applyMoney writes the document's billing lines and, on create, the
// optional embedded payment. Damages move stock only.
func applyMoney(ctx context.Context, accounts ledger.AccountPort, doc *Document, payment *PaymentInput, ref string) error {
	if doc.Kind == KindDamage {
		return nil
	}
	amount := doc.Total
	if doc.Kind == KindReturn {
		// Returned goods reduce what the party owes or is owed.
		amount = -amount
	}
	party, err := accounts.Ensure(ctx, doc.PartyKind, doc.PartyID, doc.PartyName)
	if err != nil {
		return err
	}
	if err := accounts.AddBillingLine(ctx, party.ID, ledger.BillingLine{
		DocNumber: doc.Number, Amount: amount, Date: doc.Date, Status: "POSTED",
	}); err != nil {
		return err
	}
	if doc.Kind == KindPurchase && doc.SellerID != "" && doc.SellerAmount > 0 {
		seller, err := accounts.Ensure(ctx, ledger.KindSeller, doc.SellerID, doc.SellerName)
		if err != nil {
			return err
		}
		if err := accounts.AddBillingLine(ctx, seller.ID, ledger.BillingLine{
			DocNumber: doc.Number, Amount: doc.SellerAmount, Date: doc.Date, Status: "POSTED",
		}); err != nil {
			return err
		}
	}
	if doc.TransportID != "" && doc.TransportAmount > 0 {
		transport, err := accounts.Ensure(ctx, ledger.KindTransport, doc.TransportID, doc.TransportName)
		if err != nil {
			return err
		}
		if err := accounts.AddBillingLine(ctx, transport.ID, ledger.BillingLine{
			DocNumber: doc.Number, Amount: doc.TransportAmount, Date: doc.Date, Status: "POSTED",
		}); err != nil {
			return err
		}
	}
	if payment == nil {
		return nil
	}
	// Cash flows in when the bill's customer pays and out when the
	// purchase's supplier is paid.
	cashDir := ledger.DirectionOut
	if doc.Kind == KindBill {
		cashDir = ledger.DirectionIn
	}
	line := ledger.PaymentLine{
		Amount: payment.Amount, Date: doc.Date, Method: payment.Method,
		SubmittedBy: doc.SubmittedBy, Remark: payment.Remark,
		ReferenceID: ref, DocNumber: doc.Number, Direction: ledger.DirectionIn,
	}
	if err := accounts.AddPaymentLine(ctx, party.ID, line); err != nil {
		return err
	}
	cashAcc, err := accounts.Ensure(ctx, ledger.KindCash, payment.Method, payment.Method)
	if err != nil {
		return err
	}
	line.Direction = cashDir
	return accounts.AddPaymentLine(ctx, cashAcc.ID, line)
}

func buildDocument(in CreateInput) *Document {
	doc := &Document{
		Kind:            in.Kind,
		Status:          StatusActive,
		PartyKind:       in.PartyKind,
		PartyID:         in.PartyID,
		PartyName:       in.PartyName,
		SellerID:        in.SellerID,
		SellerName:      in.SellerName,
		SellerAmount:    in.SellerAmount,
		TransportID:     in.TransportID,
		TransportName:   in.TransportName,
		TransportAmount: in.TransportAmount,
		Date:            defaultTime(in.Date),
		SubmittedBy:     in.SubmittedBy,
		Remark:          in.Remark,
		Lines:           in.Lines,
	}
	doc.Total = lineTotal(doc.Lines)
	return doc
}

func applyEdit(existing *Document, in EditInput) *Document {
	doc := *existing
	if in.PartyID != "" {
		doc.PartyID = in.PartyID
	}
	if in.PartyName != "" {
		doc.PartyName = in.PartyName
	}
	doc.SellerID = in.SellerID
	doc.SellerName = in.SellerName
	doc.SellerAmount = in.SellerAmount
	doc.TransportID = in.TransportID
	doc.TransportName = in.TransportName
	doc.TransportAmount = in.TransportAmount
	doc.Date = defaultTime(in.Date)
	doc.SubmittedBy = in.SubmittedBy
	doc.Remark = in.Remark
	doc.Lines = in.Lines
	doc.Total = lineTotal(doc.Lines)
	return &doc
}

func lineTotal(lines []ProductLine) float64 {
	var total float64
	for i := range lines {
		if lines[i].Amount == 0 {
			lines[i].Amount = lines[i].Quantity * lines[i].UnitPrice
		}
		total += lines[i].Amount
	}
	return total
}

func validateCreate(in CreateInput) error {
	if !in.Kind.Valid() {
		return shared.Validation("kind", "unknown document kind")
	}
	if in.Kind != KindDamage {
		if !in.PartyKind.Valid() || in.PartyKind == ledger.KindCash {
			return shared.Validation("partyKind", "party must be a customer or supplier book")
		}
		if in.Kind == KindBill && in.PartyKind != ledger.KindCustomer {
			return shared.Validation("partyKind", "bills are issued to customers")
		}
		if in.Kind == KindPurchase && in.PartyKind != ledger.KindSupplier {
			return shared.Validation("partyKind", "purchases are recorded against suppliers")
		}
		if in.Kind == KindReturn && in.PartyKind != ledger.KindCustomer && in.PartyKind != ledger.KindSupplier {
			return shared.Validation("partyKind", "returns settle against a customer or supplier")
		}
		if in.PartyID == "" {
			return shared.Validation("partyId", "party id required")
		}
	}
	if len(in.Lines) == 0 {
		return shared.Validation("lines", "at least one product line required")
	}
	for _, line := range in.Lines {
		if line.ItemID == "" {
			return shared.Validation("lines", "item id required on every line")
		}
		if line.Quantity <= 0 {
			return shared.Validation("lines", "line quantity must be positive")
		}
	}
	if in.Payment != nil {
		if in.Kind != KindBill && in.Kind != KindPurchase {
			return shared.Validation("payment", "only bills and purchases embed a payment")
		}
		if in.Payment.Amount <= 0 {
			return shared.Validation("payment.amount", "payment amount must be positive")
		}
		if in.Payment.Method == "" {
			return shared.Validation("payment.method", "payment method required")
		}
	}
	return nil
}

func validateEdit(in EditInput) error {
	if len(in.Lines) == 0 {
		return shared.Validation("lines", "at least one product line required")
	}
	for _, line := range in.Lines {
		if line.ItemID == "" {
			return shared.Validation("lines", "item id required on every line")
		}
		if line.Quantity <= 0 {
			return shared.Validation("lines", "line quantity must be positive")
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor, Action: action, Entity: "documents", EntityID: entityID, Meta: meta}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now().UTC()
	}
	return value
}
