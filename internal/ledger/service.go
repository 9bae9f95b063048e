package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradewell-erp/tradewell/internal/platform/cache"
	"github.com/tradewell-erp/tradewell/internal/shared"
)

// ReadPort is the committed-state read surface used outside batches.
type ReadPort interface {
	Snapshot(ctx context.Context, kind Kind, ownerID string) (*Account, error)
	ListAccounts(ctx context.Context, kind Kind) ([]Account, error)
	FindReference(ctx context.Context, ref string) ([]ReferenceCopy, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates payment movements across account aggregates.
type Service struct {
	coord  *Coordinator[Batch]
	reads  ReadPort
	minter *Minter
	cache  *cache.Snapshot
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(coord *Coordinator[Batch], reads ReadPort, minter *Minter, snap *cache.Snapshot, audit AuditPort, logger *slog.Logger) *Service {
	if minter == nil {
		minter = NewMinter(nil)
	}
	return &Service{coord: coord, reads: reads, minter: minter, cache: snap, audit: audit, logger: logger}
}

// RecordPaymentInput describes a simple payment against one party book.
type RecordPaymentInput struct {
	PartyKind   Kind
	PartyID     string
	PartyName   string
	Amount      float64
	Date        time.Time
	Method      string
	SubmittedBy string
	Remark      string
	DocNumber   string
}

// RecordPayment registers one money movement: a payment line in the
// party aggregate and a mirrored copy in the cash account named by the
// method, both sharing one PAY reference id.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (string, error) {
	if !in.PartyKind.Valid() || in.PartyKind == KindCash {
		return "", shared.Validation("partyKind", "party kind must be customer, supplier, seller or transport")
	}
	if in.PartyID == "" {
		return "", shared.Validation("partyId", "party id required")
	}
	if in.Amount <= 0 {
		return "", shared.Validation("amount", "amount must be positive")
	}
	if in.Method == "" {
		return "", shared.Validation("method", "payment method required")
	}
	date := defaultTime(in.Date)
	ref := s.minter.Mint(RefPayment)

	// Money received from a customer flows into cash; every other
	// party kind is paid out of cash.
	cashDir := DirectionOut
	if in.PartyKind == KindCustomer {
		cashDir = DirectionIn
	}

	err := s.coord.Execute(ctx, func(ctx context.Context, b Batch) error {
		party, err := b.Accounts().Ensure(ctx, in.PartyKind, in.PartyID, in.PartyName)
		if err != nil {
			return err
		}
		if err := b.Accounts().AddPaymentLine(ctx, party.ID, PaymentLine{
			Amount: in.Amount, Date: date, Method: in.Method,
			SubmittedBy: in.SubmittedBy, Remark: in.Remark,
			ReferenceID: ref, DocNumber: in.DocNumber, Direction: DirectionIn,
		}); err != nil {
			return err
		}
		cashAcc, err := b.Accounts().Ensure(ctx, KindCash, in.Method, in.Method)
		if err != nil {
			return err
		}
		return b.Accounts().AddPaymentLine(ctx, cashAcc.ID, PaymentLine{
			Amount: in.Amount, Date: date, Method: in.Method,
			SubmittedBy: in.SubmittedBy, Remark: in.Remark,
			ReferenceID: ref, DocNumber: in.DocNumber, Direction: cashDir,
		})
	})
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, statementKey(in.PartyKind, in.PartyID), statementKey(KindCash, in.Method))
	s.recordAudit(ctx, in.SubmittedBy, "ledger.payment.record", ref, map[string]any{
		"party": in.PartyID, "amount": in.Amount, "method": in.Method,
	})
	return ref, nil
}

// TransferInput describes a cash-to-cash account transfer.
type TransferInput struct {
	FromAccount string
	ToAccount   string
	Amount      float64
	Date        time.Time
	SubmittedBy string
	Remark      string
}

// Transfer moves money between two cash accounts as one atomic batch:
// an OUT line in the source, an IN line in the destination, paired
// reference ids sharing one stamp.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (outRef, inRef string, err error) {
	if in.FromAccount == "" || in.ToAccount == "" {
		return "", "", shared.Validation("account", "source and destination accounts required")
	}
	if in.FromAccount == in.ToAccount {
		return "", "", shared.Validation("toAccount", "source and destination must differ")
	}
	if in.Amount <= 0 {
		return "", "", shared.Validation("amount", "amount must be positive")
	}
	date := defaultTime(in.Date)
	outRef, inRef = s.minter.MintPair()

	err = s.coord.Execute(ctx, func(ctx context.Context, b Batch) error {
		src, err := b.Accounts().Ensure(ctx, KindCash, in.FromAccount, in.FromAccount)
		if err != nil {
			return err
		}
		dst, err := b.Accounts().Ensure(ctx, KindCash, in.ToAccount, in.ToAccount)
		if err != nil {
			return err
		}
		if err := b.Accounts().AddPaymentLine(ctx, src.ID, PaymentLine{
			Amount: in.Amount, Date: date, Method: in.FromAccount,
			SubmittedBy: in.SubmittedBy, Remark: in.Remark,
			ReferenceID: outRef, Direction: DirectionOut,
		}); err != nil {
			return err
		}
		return b.Accounts().AddPaymentLine(ctx, dst.ID, PaymentLine{
			Amount: in.Amount, Date: date, Method: in.ToAccount,
			SubmittedBy: in.SubmittedBy, Remark: in.Remark,
			ReferenceID: inRef, Direction: DirectionIn,
		})
	})
	if err != nil {
		return "", "", err
	}
	s.invalidate(ctx, statementKey(KindCash, in.FromAccount), statementKey(KindCash, in.ToAccount))
	s.recordAudit(ctx, in.SubmittedBy, "ledger.transfer", outRef, map[string]any{
		"from": in.FromAccount, "to": in.ToAccount, "amount": in.Amount,
	})
	return outRef, inRef, nil
}

// EditPayment applies the same update to every copy of a movement. A
// method change relocates the cash copy into the newly named cash
// account within the same batch. Transfer legs cannot change method.
func (s *Service) EditPayment(ctx context.Context, ref string, upd PaymentUpdate) error {
	kind, _, err := ParseRef(ref)
	if err != nil {
		return shared.Validation("referenceId", "malformed reference id")
	}
	if upd.Amount != nil && *upd.Amount <= 0 {
		return shared.Validation("amount", "amount must be positive")
	}
	if upd.Method != nil && kind != RefPayment {
		return shared.Validation("method", "transfer legs cannot change method")
	}

	var touchedOwners []string
	err = s.coord.Execute(ctx, func(ctx context.Context, b Batch) error {
		copies, err := b.Accounts().ResolveReference(ctx, ref)
		if err != nil {
			return err
		}
		if len(copies) == 0 {
			return shared.Wrap(shared.NotFound(fmt.Sprintf("reference %s not found", ref)), ErrReferenceNotFound)
		}
		for _, c := range copies {
			touchedOwners = append(touchedOwners, statementKey(c.Kind, c.OwnerID))
		}
		if upd.Method != nil {
			if err := s.relocate(ctx, b, copies, *upd.Method, &touchedOwners); err != nil {
				return err
			}
		}
		if _, err := b.Accounts().UpdatePaymentsByRef(ctx, ref, upd); err != nil {
			return err
		}
		if paired := PairedRef(ref); paired != "" {
			pairedUpd := upd
			pairedUpd.Method = nil
			if n, err := b.Accounts().UpdatePaymentsByRef(ctx, paired, pairedUpd); err != nil {
				return err
			} else if n == 0 {
				return shared.Invariant(fmt.Sprintf("transfer counterpart %s missing", paired))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, touchedOwners...)
	s.recordAudit(ctx, "", "ledger.payment.edit", ref, nil)
	return nil
}

// relocate moves the cash copy of a movement to the cash account named
// by the new method. Removal and insertion share the batch: both
// succeed or neither happens.
func (s *Service) relocate(ctx context.Context, b Batch, copies []ReferenceCopy, method string, owners *[]string) error {
	for _, c := range copies {
		if c.Kind != KindCash || c.OwnerID == method {
			continue
		}
		dst, err := b.Accounts().Ensure(ctx, KindCash, method, method)
		if err != nil {
			return err
		}
		if err := b.Accounts().MovePaymentsByRef(ctx, c.Line.ReferenceID, c.AccountID, dst.ID); err != nil {
			return err
		}
		*owners = append(*owners, statementKey(KindCash, method))
	}
	return nil
}

// DeletePayment removes every copy of the movement; a transfer leg
// takes its paired counterpart with it, restoring both balances.
func (s *Service) DeletePayment(ctx context.Context, ref string) error {
	if _, _, err := ParseRef(ref); err != nil {
		return shared.Validation("referenceId", "malformed reference id")
	}
	var touchedOwners []string
	err := s.coord.Execute(ctx, func(ctx context.Context, b Batch) error {
		copies, err := b.Accounts().ResolveReference(ctx, ref)
		if err != nil {
			return err
		}
		if len(copies) == 0 {
			return shared.Wrap(shared.NotFound(fmt.Sprintf("reference %s not found", ref)), ErrReferenceNotFound)
		}
		for _, c := range copies {
			touchedOwners = append(touchedOwners, statementKey(c.Kind, c.OwnerID))
		}
		if _, err := b.Accounts().DeletePaymentsByRef(ctx, ref); err != nil {
			return err
		}
		if paired := PairedRef(ref); paired != "" {
			pairedCopies, err := b.Accounts().ResolveReference(ctx, paired)
			if err != nil {
				return err
			}
			for _, c := range pairedCopies {
				touchedOwners = append(touchedOwners, statementKey(c.Kind, c.OwnerID))
			}
			if _, err := b.Accounts().DeletePaymentsByRef(ctx, paired); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, touchedOwners...)
	s.recordAudit(ctx, "", "ledger.payment.delete", ref, nil)
	return nil
}

// Statement returns the committed aggregate snapshot, served from the
// short-TTL cache when warm.
func (s *Service) Statement(ctx context.Context, kind Kind, ownerID string) (*Account, error) {
	if !kind.Valid() {
		return nil, shared.Validation("kind", "unknown account kind")
	}
	key := statementKey(kind, ownerID)
	var cached Account
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}
	acc, err := s.reads.Snapshot(ctx, kind, ownerID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, shared.Wrap(shared.NotFound(fmt.Sprintf("%s account %s not found", kind, ownerID)), err)
	}
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, acc); err != nil && s.logger != nil {
		s.logger.Warn("statement cache set", slog.Any("error", err))
	}
	return acc, nil
}

// ListAccounts returns aggregate headers of one kind.
func (s *Service) ListAccounts(ctx context.Context, kind Kind) ([]Account, error) {
	if !kind.Valid() {
		return nil, shared.Validation("kind", "unknown account kind")
	}
	return s.reads.ListAccounts(ctx, kind)
}

// Resolve lists every committed copy of a reference id.
func (s *Service) Resolve(ctx context.Context, ref string) ([]ReferenceCopy, error) {
	copies, err := s.reads.FindReference(ctx, ref)
	if errors.Is(err, ErrReferenceNotFound) {
		return nil, shared.Wrap(shared.NotFound(fmt.Sprintf("reference %s not found", ref)), err)
	}
	return copies, err
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil && s.logger != nil {
		s.logger.Warn("statement cache invalidate", slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor, Action: action, Entity: "ledger", EntityID: entityID, Meta: meta}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}

func statementKey(kind Kind, ownerID string) string {
	return fmt.Sprintf("ledger:stmt:%s:%s", kind, ownerID)
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now().UTC()
	}
	return value
}
