package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/shared"
)

// TxPort is the transactional surface of the stock store.
type TxPort interface {
	// GetProductForUpdate locks and returns the product row.
	GetProductForUpdate(ctx context.Context, itemID string) (*Product, error)
	// UpsertProduct creates or refreshes product identity fields.
	UpsertProduct(ctx context.Context, p Product) error
	// SetQuantity writes the product's new count.
	SetQuantity(ctx context.Context, itemID string, qty float64) error
	// InsertEntry appends one ledger entry.
	InsertEntry(ctx context.Context, e LedgerEntry) (int64, error)
	// EntriesByDoc lists every entry tied to a business document.
	EntriesByDoc(ctx context.Context, docNumber string) ([]LedgerEntry, error)
	// DeleteEntriesByDoc removes a document's entries after reversal.
	DeleteEntriesByDoc(ctx context.Context, docNumber string) error
}

// Batch is the batch surface for stock mutations. Stores that also
// carry account aggregates satisfy ledger.Batch alongside.
type Batch interface {
	ledger.Batch
	Stock() TxPort
}

// Apply atomically adds the signed delta to the product count and
// appends a ledger entry carrying the resulting snapshot. A delta that
// would leave the count negative is rejected; reaching exactly zero is
// permitted.
func Apply(ctx context.Context, tx TxPort, in ApplyInput) (LedgerEntry, error) {
	if in.Quantity == 0 {
		return LedgerEntry{}, shared.Wrap(shared.Validation("quantity", "quantity must be non zero"), ErrInvalidQuantity)
	}
	if !in.Source.Valid() {
		return LedgerEntry{}, shared.Validation("sourceType", "unknown source type")
	}
	product, err := tx.GetProductForUpdate(ctx, in.ItemID)
	if errors.Is(err, ErrUnknownItem) {
		if in.Source != SourceOpening && in.Source != SourcePurchase {
			return LedgerEntry{}, shared.Wrap(shared.NotFound(fmt.Sprintf("item %s not found", in.ItemID)), err)
		}
		product = &Product{ItemID: in.ItemID, Name: in.Name, Brand: in.Brand, Category: in.Category}
		if err := tx.UpsertProduct(ctx, *product); err != nil {
			return LedgerEntry{}, err
		}
	} else if err != nil {
		return LedgerEntry{}, err
	}

	newQty := product.Quantity + in.Quantity
	if newQty < 0 {
		return LedgerEntry{}, shared.Wrap(
			shared.Invariant(fmt.Sprintf("item %s has %g in stock, cannot remove %g", in.ItemID, product.Quantity, -in.Quantity)),
			ErrInsufficientStock)
	}
	if err := tx.SetQuantity(ctx, in.ItemID, newQty); err != nil {
		return LedgerEntry{}, err
	}
	entry := LedgerEntry{
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		Source:      in.Source,
		DocNumber:   in.DocNumber,
		SubmittedBy: in.SubmittedBy,
		Remark:      in.Remark,
		Date:        in.Date,
		Snapshot:    newQty,
	}
	id, err := tx.InsertEntry(ctx, entry)
	if err != nil {
		return LedgerEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

// Reverse applies the negated deltas of every entry tied to a document
// and removes those entries, through the same negative-count guard: a
// reversal that would underflow any product aborts the whole batch.
func Reverse(ctx context.Context, tx TxPort, docNumber string) error {
	entries, err := tx.EntriesByDoc(ctx, docNumber)
	if err != nil {
		return err
	}
	// Net the deltas per item so a multi-line document locks each
	// product once.
	perItem := make(map[string]float64)
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, seen := perItem[e.ItemID]; !seen {
			order = append(order, e.ItemID)
		}
		perItem[e.ItemID] += e.Quantity
	}
	for _, itemID := range order {
		product, err := tx.GetProductForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		newQty := product.Quantity - perItem[itemID]
		if newQty < 0 {
			return shared.Wrap(
				shared.Invariant(fmt.Sprintf("reversing %s would leave item %s at %g", docNumber, itemID, newQty)),
				ErrInsufficientStock)
		}
		if err := tx.SetQuantity(ctx, itemID, newQty); err != nil {
			return err
		}
	}
	return tx.DeleteEntriesByDoc(ctx, docNumber)
}
