// Package documents owns the business documents of the trading book:
// bills (sales), purchases, returns and damages. A document is the
// authoritative record of one trading event; its stock and account
// effects are applied, re-applied on edit, and fully reversed on
// delete, always inside one atomic batch.
package documents

import (
	"errors"
	"time"

	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/sequence"
	"github.com/tradewell-erp/tradewell/internal/stock"
)

// Kind enumerates document kinds.
type Kind string

const (
	KindBill     Kind = "BILL"
	KindPurchase Kind = "PURCHASE"
	KindReturn   Kind = "RETURN"
	KindDamage   Kind = "DAMAGE"
)

// Valid reports whether the kind is known.
func (k Kind) Valid() bool {
	switch k {
	case KindBill, KindPurchase, KindReturn, KindDamage:
		return true
	}
	return false
}

// Namespace returns the numbering namespace of the kind. Each kind
// numbers independently with its own prefix.
func (k Kind) Namespace() sequence.Namespace {
	switch k {
	case KindBill:
		return sequence.Namespace{Name: "invoice", Prefix: "TC"}
	case KindPurchase:
		return sequence.Namespace{Name: "purchase", Prefix: "PC"}
	case KindReturn:
		return sequence.Namespace{Name: "return", Prefix: "RN"}
	case KindDamage:
		return sequence.Namespace{Name: "damage", Prefix: "DM"}
	}
	return sequence.Namespace{}
}

// Status tracks the document lifecycle. A stored document is active;
// deletion is terminal and removes the row with all its effects.
type Status string

const (
	StatusDraft   Status = "DRAFT"
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
)

// ProductLine is one traded product row inside a document.
type ProductLine struct {
	ID        int64
	ItemID    string
	Name      string
	Brand     string
	Category  string
	Quantity  float64
	UnitPrice float64
	Amount    float64
}

// Document is the authoritative record of one trading event.
type Document struct {
	ID        int64
	Number    string
	Kind      Kind
	Status    Status
	PartyKind ledger.Kind
	PartyID   string
	PartyName string

	// Purchases optionally bill a commission to the brokering seller.
	SellerID     string
	SellerName   string
	SellerAmount float64

	// Bills and purchases optionally bill a freight charge to the
	// transport company.
	TransportID     string
	TransportName   string
	TransportAmount float64

	Total       float64
	Date        time.Time
	SubmittedBy string
	Remark      string
	Lines       []ProductLine
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PaymentInput is an immediate payment embedded in a bill or purchase.
type PaymentInput struct {
	Amount float64
	Method string
	Remark string
}

// CreateInput describes a new document.
type CreateInput struct {
	Kind      Kind
	Number    string // optional candidate id
	PartyKind ledger.Kind
	PartyID   string
	PartyName string

	SellerID     string
	SellerName   string
	SellerAmount float64

	TransportID     string
	TransportName   string
	TransportAmount float64

	Date        time.Time
	SubmittedBy string
	Remark      string
	Lines       []ProductLine
	Payment     *PaymentInput
}

// EditInput describes a repeatable edit: the old effects are reversed
// and the new ones applied in one batch. Payment movements already
// linked to the document are left in place.
type EditInput struct {
	PartyID   string
	PartyName string

	SellerID     string
	SellerName   string
	SellerAmount float64

	TransportID     string
	TransportName   string
	TransportAmount float64

	Date        time.Time
	SubmittedBy string
	Remark      string
	Lines       []ProductLine
}

// ErrDocumentNotFound indicates the number does not resolve.
var ErrDocumentNotFound = errors.New("documents: not found")

// stockSource maps a document kind to its stock ledger source type.
func stockSource(kind Kind) stock.SourceType {
	switch kind {
	case KindBill:
		return stock.SourceSale
	case KindPurchase:
		return stock.SourcePurchase
	case KindReturn:
		return stock.SourceReturn
	case KindDamage:
		return stock.SourceDamage
	}
	return ""
}

// stockDelta returns the signed quantity effect of one line. Sales and
// damages remove stock, purchases add it; a return adds stock when the
// customer brings goods back and removes it when goods go back to the
// supplier.
func stockDelta(kind Kind, party ledger.Kind, qty float64) float64 {
	switch kind {
	case KindBill, KindDamage:
		return -qty
	case KindPurchase:
		return qty
	case KindReturn:
		if party == ledger.KindSupplier {
			return -qty
		}
		return qty
	}
	return 0
}
