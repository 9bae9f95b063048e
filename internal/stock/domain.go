// Package stock is the append-only quantity ledger: every signed delta
// against a product is recorded with its source document, and the
// product count mirrors the same consistency rules the money book uses.
package stock

import (
	"errors"
	"time"
)

// SourceType names the business event behind a quantity delta.
type SourceType string

const (
	SourcePurchase SourceType = "purchase"
	SourceReturn   SourceType = "return"
	SourceDamage   SourceType = "damage"
	SourceOpening  SourceType = "opening"
	SourceSale     SourceType = "sale"
)

// Valid reports whether the source type is known.
func (s SourceType) Valid() bool {
	switch s {
	case SourcePurchase, SourceReturn, SourceDamage, SourceOpening, SourceSale:
		return true
	}
	return false
}

// Product is the current identity and count of one stocked item.
type Product struct {
	ItemID    string
	Name      string
	Brand     string
	Category  string
	Quantity  float64
	UpdatedAt time.Time
}

// LedgerEntry is one signed quantity change. Snapshot is the product
// count resulting from this entry at write time.
type LedgerEntry struct {
	ID          int64
	ItemID      string
	Quantity    float64
	Source      SourceType
	DocNumber   string
	SubmittedBy string
	Remark      string
	Date        time.Time
	Snapshot    float64
}

// ApplyInput describes one delta to apply.
type ApplyInput struct {
	ItemID      string
	Name        string
	Brand       string
	Category    string
	Quantity    float64
	Source      SourceType
	DocNumber   string
	SubmittedBy string
	Remark      string
	Date        time.Time
}

// HistoryEntry joins a ledger entry with current product identity.
type HistoryEntry struct {
	LedgerEntry
	Name     string
	Brand    string
	Category string
}

// Cursor restarts a history scan after the given entry.
type Cursor struct {
	Date time.Time `json:"date"`
	ID   int64     `json:"id"`
}

// HistoryFilter narrows a history scan. Empty ItemID means all items.
type HistoryFilter struct {
	ItemID string
	From   time.Time
	To     time.Time
	After  *Cursor
	Limit  int
}

var (
	// ErrInsufficientStock triggered when a delta or reversal would
	// leave a negative count.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	// ErrUnknownItem indicates the product does not exist.
	ErrUnknownItem = errors.New("stock: unknown item")
	// ErrInvalidQuantity indicates a zero delta.
	ErrInvalidQuantity = errors.New("stock: quantity must be non zero")
)
