package documents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/sequence"
	"github.com/tradewell-erp/tradewell/internal/shared"
	"github.com/tradewell-erp/tradewell/internal/stock"
)

// memState is the full in-memory world of one test: account aggregates,
// products, stock entries, counters and document rows. Batches clone it
// and swap the clone in on commit, so an abort leaves it untouched.
type memState struct {
	accSeq   int64
	accounts map[int64]*ledger.Account
	byOwner  map[string]int64
	bills    map[int64][]ledger.BillingLine
	payments map[int64][]ledger.PaymentLine
	touched  map[int64]struct{}

	products map[string]*stock.Product
	stockSeq int64
	entries  []stock.LedgerEntry

	counters map[string]int64
	docSeq   int64
	docs     map[int64]*Document
	byNumber map[string]int64
}

func newMemState() *memState {
	return &memState{
		accounts: make(map[int64]*ledger.Account),
		byOwner:  make(map[string]int64),
		bills:    make(map[int64][]ledger.BillingLine),
		payments: make(map[int64][]ledger.PaymentLine),
		touched:  make(map[int64]struct{}),
		products: make(map[string]*stock.Product),
		counters: make(map[string]int64),
		docs:     make(map[int64]*Document),
		byNumber: make(map[string]int64),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.accSeq, c.stockSeq, c.docSeq = s.accSeq, s.stockSeq, s.docSeq
	for id, acc := range s.accounts {
		copied := *acc
		c.accounts[id] = &copied
	}
	for k, v := range s.byOwner {
		c.byOwner[k] = v
	}
	for id, lines := range s.bills {
		c.bills[id] = append([]ledger.BillingLine(nil), lines...)
	}
	for id, lines := range s.payments {
		c.payments[id] = append([]ledger.PaymentLine(nil), lines...)
	}
	for k, p := range s.products {
		copied := *p
		c.products[k] = &copied
	}
	c.entries = append([]stock.LedgerEntry(nil), s.entries...)
	for k, v := range s.counters {
		c.counters[k] = v
	}
	for id, doc := range s.docs {
		copied := *doc
		copied.Lines = append([]ProductLine(nil), doc.Lines...)
		c.docs[id] = &copied
	}
	for k, v := range s.byNumber {
		c.byNumber[k] = v
	}
	return c
}

// accountPort adapts memState to ledger.AccountPort.
type accountPort struct{ s *memState }

func accKey(kind ledger.Kind, ownerID string) string { return string(kind) + "|" + ownerID }

func (p accountPort) Ensure(_ context.Context, kind ledger.Kind, ownerID, name string) (*ledger.Account, error) {
	if id, ok := p.s.byOwner[accKey(kind, ownerID)]; ok {
		acc := *p.s.accounts[id]
		return &acc, nil
	}
	p.s.accSeq++
	acc := &ledger.Account{ID: p.s.accSeq, Kind: kind, OwnerID: ownerID, Name: name}
	p.s.accounts[acc.ID] = acc
	p.s.byOwner[accKey(kind, ownerID)] = acc.ID
	out := *acc
	return &out, nil
}

func (p accountPort) GetByOwner(_ context.Context, kind ledger.Kind, ownerID string) (*ledger.Account, error) {
	id, ok := p.s.byOwner[accKey(kind, ownerID)]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	acc := *p.s.accounts[id]
	return &acc, nil
}

func (p accountPort) GetByID(_ context.Context, id int64) (*ledger.Account, error) {
	acc, ok := p.s.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	out := *acc
	return &out, nil
}

func (p accountPort) AddBillingLine(_ context.Context, accountID int64, line ledger.BillingLine) error {
	line.AccountID = accountID
	p.s.bills[accountID] = append(p.s.bills[accountID], line)
	p.s.touched[accountID] = struct{}{}
	return nil
}

func (p accountPort) AddPaymentLine(_ context.Context, accountID int64, line ledger.PaymentLine) error {
	line.AccountID = accountID
	if line.Direction == "" {
		line.Direction = ledger.DirectionIn
	}
	p.s.payments[accountID] = append(p.s.payments[accountID], line)
	p.s.touched[accountID] = struct{}{}
	return nil
}

func (p accountPort) UpdatePaymentsByRef(_ context.Context, ref string, upd ledger.PaymentUpdate) (int64, error) {
	var n int64
	for id, lines := range p.s.payments {
		for i := range lines {
			if lines[i].ReferenceID != ref {
				continue
			}
			if upd.Amount != nil {
				lines[i].Amount = *upd.Amount
			}
			p.s.touched[id] = struct{}{}
			n++
		}
	}
	return n, nil
}

func (p accountPort) DeletePaymentsByRef(_ context.Context, ref string) (int64, error) {
	var n int64
	for id, lines := range p.s.payments {
		kept := lines[:0]
		for _, l := range lines {
			if l.ReferenceID == ref {
				p.s.touched[id] = struct{}{}
				n++
				continue
			}
			kept = append(kept, l)
		}
		p.s.payments[id] = kept
	}
	return n, nil
}

func (p accountPort) MovePaymentsByRef(_ context.Context, ref string, fromID, toID int64) error {
	kept := p.s.payments[fromID][:0]
	moved := false
	for _, l := range p.s.payments[fromID] {
		if l.ReferenceID == ref {
			l.AccountID = toID
			p.s.payments[toID] = append(p.s.payments[toID], l)
			moved = true
			continue
		}
		kept = append(kept, l)
	}
	p.s.payments[fromID] = kept
	if !moved {
		return ledger.ErrReferenceNotFound
	}
	p.s.touched[fromID] = struct{}{}
	p.s.touched[toID] = struct{}{}
	return nil
}

func (p accountPort) RemoveDocBillingLines(_ context.Context, docNumber string) ([]int64, error) {
	var ids []int64
	for id, lines := range p.s.bills {
		kept := lines[:0]
		hit := false
		for _, l := range lines {
			if l.DocNumber == docNumber {
				hit = true
				continue
			}
			kept = append(kept, l)
		}
		p.s.bills[id] = kept
		if hit {
			p.s.touched[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (p accountPort) RemoveDocPaymentLines(_ context.Context, docNumber string) ([]int64, error) {
	var ids []int64
	for id, lines := range p.s.payments {
		kept := lines[:0]
		hit := false
		for _, l := range lines {
			if l.DocNumber == docNumber {
				hit = true
				continue
			}
			kept = append(kept, l)
		}
		p.s.payments[id] = kept
		if hit {
			p.s.touched[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (p accountPort) ResolveReference(_ context.Context, ref string) ([]ledger.ReferenceCopy, error) {
	var copies []ledger.ReferenceCopy
	for id, lines := range p.s.payments {
		for _, l := range lines {
			if l.ReferenceID == ref {
				acc := p.s.accounts[id]
				copies = append(copies, ledger.ReferenceCopy{AccountID: id, Kind: acc.Kind, OwnerID: acc.OwnerID, Line: l})
			}
		}
	}
	return copies, nil
}

func (p accountPort) Lines(_ context.Context, accountID int64) ([]ledger.BillingLine, []ledger.PaymentLine, error) {
	return append([]ledger.BillingLine(nil), p.s.bills[accountID]...),
		append([]ledger.PaymentLine(nil), p.s.payments[accountID]...), nil
}

func (p accountPort) SetTotals(_ context.Context, accountID int64, totals ledger.Totals, expectVersion int64) error {
	acc, ok := p.s.accounts[accountID]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	if acc.Version != expectVersion {
		return ledger.ErrVersionConflict
	}
	acc.Totals = totals
	acc.Version++
	return nil
}

func (p accountPort) Touched() []int64 {
	out := make([]int64, 0, len(p.s.touched))
	for id := range p.s.touched {
		out = append(out, id)
	}
	return out
}

// stockPort adapts memState to stock.TxPort.
type stockPort struct{ s *memState }

func (p stockPort) GetProductForUpdate(_ context.Context, itemID string) (*stock.Product, error) {
	prod, ok := p.s.products[itemID]
	if !ok {
		return nil, stock.ErrUnknownItem
	}
	out := *prod
	return &out, nil
}

func (p stockPort) UpsertProduct(_ context.Context, prod stock.Product) error {
	if existing, ok := p.s.products[prod.ItemID]; ok {
		if prod.Name != "" {
			existing.Name = prod.Name
		}
		return nil
	}
	copied := prod
	p.s.products[prod.ItemID] = &copied
	return nil
}

func (p stockPort) SetQuantity(_ context.Context, itemID string, qty float64) error {
	prod, ok := p.s.products[itemID]
	if !ok {
		return stock.ErrUnknownItem
	}
	prod.Quantity = qty
	return nil
}

func (p stockPort) InsertEntry(_ context.Context, e stock.LedgerEntry) (int64, error) {
	p.s.stockSeq++
	e.ID = p.s.stockSeq
	p.s.entries = append(p.s.entries, e)
	return e.ID, nil
}

func (p stockPort) EntriesByDoc(_ context.Context, docNumber string) ([]stock.LedgerEntry, error) {
	var out []stock.LedgerEntry
	for _, e := range p.s.entries {
		if e.DocNumber == docNumber {
			out = append(out, e)
		}
	}
	return out, nil
}

func (p stockPort) DeleteEntriesByDoc(_ context.Context, docNumber string) error {
	kept := p.s.entries[:0]
	for _, e := range p.s.entries {
		if e.DocNumber != docNumber {
			kept = append(kept, e)
		}
	}
	p.s.entries = kept
	return nil
}

// seqPort adapts memState to sequence.TxPort.
type seqPort struct{ s *memState }

func (p seqPort) Increment(_ context.Context, namespace string) (int64, error) {
	p.s.counters[namespace]++
	return p.s.counters[namespace], nil
}

func (p seqPort) Raise(_ context.Context, namespace string, floor int64) (int64, error) {
	if p.s.counters[namespace] < floor {
		p.s.counters[namespace] = floor
	}
	return p.s.counters[namespace], nil
}

func (p seqPort) Exists(_ context.Context, _, id string) (bool, error) {
	_, ok := p.s.byNumber[id]
	return ok, nil
}

func (p seqPort) Numbers(_ context.Context, namespace string) ([]string, error) {
	var out []string
	for n, id := range p.s.byNumber {
		if p.s.docs[id].Kind.Namespace().Name == namespace {
			out = append(out, n)
		}
	}
	return out, nil
}

// docPort adapts memState to TxPort.
type docPort struct{ s *memState }

func (p docPort) Insert(_ context.Context, doc *Document) (int64, error) {
	p.s.docSeq++
	copied := *doc
	copied.ID = p.s.docSeq
	copied.Lines = append([]ProductLine(nil), doc.Lines...)
	p.s.docs[copied.ID] = &copied
	p.s.byNumber[copied.Number] = copied.ID
	return copied.ID, nil
}

func (p docPort) Update(_ context.Context, doc *Document) error {
	if _, ok := p.s.docs[doc.ID]; !ok {
		return ErrDocumentNotFound
	}
	copied := *doc
	copied.Lines = append([]ProductLine(nil), doc.Lines...)
	p.s.docs[doc.ID] = &copied
	return nil
}

func (p docPort) GetByNumberForUpdate(_ context.Context, number string) (*Document, error) {
	id, ok := p.s.byNumber[number]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	doc := *p.s.docs[id]
	doc.Lines = append([]ProductLine(nil), p.s.docs[id].Lines...)
	return &doc, nil
}

func (p docPort) Delete(_ context.Context, id int64) error {
	doc, ok := p.s.docs[id]
	if !ok {
		return ErrDocumentNotFound
	}
	delete(p.s.byNumber, doc.Number)
	delete(p.s.docs, id)
	return nil
}

type memBatch struct{ s *memState }

func (b memBatch) Accounts() ledger.AccountPort { return accountPort{b.s} }
func (b memBatch) Stock() stock.TxPort          { return stockPort{b.s} }
func (b memBatch) Sequences() sequence.TxPort   { return seqPort{b.s} }
func (b memBatch) Documents() TxPort            { return docPort{b.s} }

type memStore struct{ state *memState }

func (s *memStore) Batch(ctx context.Context, fn func(ctx context.Context, batch Batch) error) error {
	work := s.state.clone()
	if err := fn(ctx, memBatch{s: work}); err != nil {
		return err
	}
	work.touched = make(map[int64]struct{})
	s.state = work
	return nil
}

func (s *memStore) GetByNumber(ctx context.Context, number string) (*Document, error) {
	return docPort{s.state}.GetByNumberForUpdate(ctx, number)
}

func (s *memStore) List(_ context.Context, kind Kind, limit, offset int) ([]Document, error) {
	var out []Document
	for _, doc := range s.state.docs {
		if doc.Kind == kind {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *memStore) account(t *testing.T, kind ledger.Kind, owner string) *ledger.Account {
	t.Helper()
	acc, err := accountPort{s.state}.GetByOwner(context.Background(), kind, owner)
	require.NoError(t, err)
	return acc
}

func newTestService(store *memStore) *Service {
	coord := ledger.NewCoordinator[Batch](store, nil)
	minter := ledger.NewMinter(func() time.Time { return time.UnixMilli(1700000000000).UTC() })
	return NewService(coord, store, minter, nil, nil)
}

func seedOpening(t *testing.T, store *memStore, itemID string, qty float64) {
	t.Helper()
	err := store.Batch(context.Background(), func(ctx context.Context, b Batch) error {
		_, err := stock.Apply(ctx, b.Stock(), stock.ApplyInput{
			ItemID: itemID, Name: itemID, Quantity: qty, Source: stock.SourceOpening, Date: time.Now(),
		})
		return err
	})
	require.NoError(t, err)
}

func billInput(lines ...ProductLine) CreateInput {
	return CreateInput{
		Kind: KindBill, PartyKind: ledger.KindCustomer,
		PartyID: "cust-1", PartyName: "Customer One",
		SubmittedBy: "ops", Lines: lines,
	}
}

func TestCreateBillMovesStockAndBillsCustomer(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	seedOpening(t, store, "itm-1", 50)

	doc, err := svc.Create(context.Background(), billInput(
		ProductLine{ItemID: "itm-1", Quantity: 20, UnitPrice: 10},
	))
	require.NoError(t, err)
	require.Equal(t, "TC1", doc.Number)
	require.Equal(t, 200.0, doc.Total)

	require.Equal(t, 30.0, store.state.products["itm-1"].Quantity)
	cust := store.account(t, ledger.KindCustomer, "cust-1")
	require.Equal(t, 200.0, cust.Totals.Billed)
	require.Equal(t, 200.0, cust.Totals.Pending)
}

func TestCreateBillWithImmediatePayment(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	seedOpening(t, store, "itm-1", 50)

	in := billInput(ProductLine{ItemID: "itm-1", Quantity: 10, UnitPrice: 10})
	in.Payment = &PaymentInput{Amount: 60, Method: "hdfc"}
	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	cust := store.account(t, ledger.KindCustomer, "cust-1")
	require.Equal(t, 40.0, cust.Totals.Pending)
	cash := store.account(t, ledger.KindCash, "hdfc")
	require.Equal(t, 60.0, cash.Totals.Pending)
}

func TestCreateBillInsufficientStockAborts(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	seedOpening(t, store, "itm-1", 5)

	_, err := svc.Create(context.Background(), billInput(
		ProductLine{ItemID: "itm-1", Quantity: 20, UnitPrice: 10},
	))
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.Equal(t, 5.0, store.state.products["itm-1"].Quantity)
	require.Empty(t, store.state.docs)
	_, err = accountPort{store.state}.GetByOwner(context.Background(), ledger.KindCustomer, "cust-1")
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestCreatePurchaseBillsSupplierSellerTransport(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)

	doc, err := svc.Create(context.Background(), CreateInput{
		Kind: KindPurchase, PartyKind: ledger.KindSupplier,
		PartyID: "sup-1", PartyName: "Supplier One",
		SellerID: "sel-1", SellerName: "Seller One", SellerAmount: 25,
		TransportID: "trn-1", TransportName: "Transport One", TransportAmount: 15,
		SubmittedBy: "ops",
		Lines:       []ProductLine{{ItemID: "itm-9", Name: "New Widget", Quantity: 40, UnitPrice: 5}},
	})
	require.NoError(t, err)
	require.Equal(t, "PC1", doc.Number)

	// Purchases create the product when unknown.
	require.Equal(t, 40.0, store.state.products["itm-9"].Quantity)
	require.Equal(t, 200.0, store.account(t, ledger.KindSupplier, "sup-1").Totals.Pending)
	require.Equal(t, 25.0, store.account(t, ledger.KindSeller, "sel-1").Totals.Pending)
	require.Equal(t, 15.0, store.account(t, ledger.KindTransport, "trn-1").Totals.Pending)
}

func TestCreateReturnFromCustomerRestocksAndCredits(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	seedOpening(t, store, "itm-1", 50)

	// Bill 20 out first so the return has something to credit.
	_, err := svc.Create(context.Background(), billInput(
		ProductLine{ItemID: "itm-1", Quantity: 20, UnitPrice: 10},
	))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		Kind: KindReturn, PartyKind: ledger.KindCustomer,
		PartyID: "cust-1", SubmittedBy: "ops",
		Lines: []ProductLine{{ItemID: "itm-1", Quantity: 5, UnitPrice: 10}},
	})
	require.NoError(t, err)

	require.Equal(t, 35.0, store.state.products["itm-1"].Quantity)
	require.Equal(t, 150.0, store.account(t, ledger.KindCustomer, "cust-1").Totals.Pending)
}

func TestCreateDamageMovesStockOnly(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	seedOpening(t, store, "itm-1", 50)

	doc, err := svc.Create(context.Background(), CreateInput{
		Kind: KindDamage, SubmittedBy: "ops",
		Lines: []ProductLine{{ItemID: "itm-1", Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, "DM1", doc.Number)
	require.Equal(t, 47.0, store.state.products["itm-1"].Quantity)
	require.Empty(t, store.state.accounts)
}

func TestEditRebuildsEffectsAndKeepsPayments(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	seedOpening(t, store, "itm-1", 50)

	in := billInput(ProductLine{ItemID: "itm-1", Quantity: 20, UnitPrice: 10})
	in.Payment = &PaymentInput{Amount: 50, Method: "hdfc"}
	doc, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	edited, err := svc.Edit(context.Background(), doc.Number, EditInput{
		SubmittedBy: "ops",
		Lines:       []ProductLine{{ItemID: "itm-1", Quantity: 10, UnitPrice: 12}},
	})
	require.NoError(t, err)
	require.Equal(t, 120.0, edited.Total)

	// Stock reflects the new quantity only.
	require.Equal(t, 40.0, store.state.products["itm-1"].Quantity)
	cust := store.account(t, ledger.KindCustomer, "cust-1")
	require.Equal(t, 120.0, cust.Totals.Billed)
	// The embedded payment survived the edit.
	require.Equal(t, 50.0, cust.Totals.Paid)
	require.Equal(t, 70.0, cust.Totals.Pending)
}

func TestEditIsRepeatable(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	seedOpening(t, store, "itm-1", 50)

	doc, err := svc.Create(context.Background(), billInput(
		ProductLine{ItemID: "itm-1", Quantity: 20, UnitPrice: 10},
	))
	require.NoError(t, err)

	for range 3 {
		_, err := svc.Edit(context.Background(), doc.Number, EditInput{
			SubmittedBy: "ops",
			Lines:       []ProductLine{{ItemID: "itm-1", Quantity: 15, UnitPrice: 10}},
		})
		require.NoError(t, err)
	}

	require.Equal(t, 35.0, store.state.products["itm-1"].Quantity)
	require.Equal(t, 150.0, store.account(t, ledger.KindCustomer, "cust-1").Totals.Billed)
}

func TestEditUnknownDocument(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	_, err := svc.Edit(context.Background(), "TC404", EditInput{
		SubmittedBy: "ops",
		Lines:       []ProductLine{{ItemID: "itm-1", Quantity: 1}},
	})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestDeletePurchaseRestoresEverything(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)

	in := CreateInput{
		Kind: KindPurchase, PartyKind: ledger.KindSupplier,
		PartyID: "sup-1", SellerID: "sel-1", SellerAmount: 25,
		SubmittedBy: "ops",
		Lines:       []ProductLine{{ItemID: "itm-9", Name: "Widget", Quantity: 40, UnitPrice: 5}},
		Payment:     &PaymentInput{Amount: 100, Method: "cash"},
	}
	doc, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), doc.Number, "ops"))

	require.Equal(t, 0.0, store.state.products["itm-9"].Quantity)
	require.Equal(t, ledger.Totals{}, store.account(t, ledger.KindSupplier, "sup-1").Totals)
	require.Equal(t, ledger.Totals{}, store.account(t, ledger.KindSeller, "sel-1").Totals)
	require.Equal(t, ledger.Totals{}, store.account(t, ledger.KindCash, "cash").Totals)
	require.Empty(t, store.state.docs)
}

func TestDeleteBillAfterStockConsumedAborts(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)

	// Purchase 10 in, sell 8 elsewhere, then try to delete the purchase.
	purchase, err := svc.Create(context.Background(), CreateInput{
		Kind: KindPurchase, PartyKind: ledger.KindSupplier,
		PartyID: "sup-1", SubmittedBy: "ops",
		Lines: []ProductLine{{ItemID: "itm-1", Name: "Widget", Quantity: 10, UnitPrice: 5}},
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), billInput(
		ProductLine{ItemID: "itm-1", Quantity: 8, UnitPrice: 10},
	))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), purchase.Number, "ops")
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	// The purchase survives the aborted delete.
	_, err = store.GetByNumber(context.Background(), purchase.Number)
	require.NoError(t, err)
	require.Equal(t, 2.0, store.state.products["itm-1"].Quantity)
}

func TestCreateHonorsCandidateNumber(t *testing.T) {
	store := &memStore{state: newMemState()}
	svc := newTestService(store)
	seedOpening(t, store, "itm-1", 50)

	in := billInput(ProductLine{ItemID: "itm-1", Quantity: 1, UnitPrice: 10})
	in.Number = "TC7"
	doc, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "TC7", doc.Number)

	// The counter continues past the claimed suffix.
	doc, err = svc.Create(context.Background(), billInput(
		ProductLine{ItemID: "itm-1", Quantity: 1, UnitPrice: 10},
	))
	require.NoError(t, err)
	require.Equal(t, "TC8", doc.Number)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(&memStore{state: newMemState()})

	_, err := svc.Create(context.Background(), CreateInput{Kind: "BOGUS"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(context.Background(), CreateInput{
		Kind: KindBill, PartyKind: ledger.KindSupplier, PartyID: "x",
		Lines: []ProductLine{{ItemID: "i", Quantity: 1}},
	})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(context.Background(), billInput())
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}
