package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradewell-erp/tradewell/internal/platform/cache"
	"github.com/tradewell-erp/tradewell/internal/shared"
)

// memAccounts is an in-memory AccountPort used by service tests.
type memAccounts struct {
	seq      int64
	accounts map[int64]*Account
	byOwner  map[string]int64
	bills    map[int64][]BillingLine
	payments map[int64][]PaymentLine
	touched  map[int64]struct{}
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		accounts: make(map[int64]*Account),
		byOwner:  make(map[string]int64),
		bills:    make(map[int64][]BillingLine),
		payments: make(map[int64][]PaymentLine),
		touched:  make(map[int64]struct{}),
	}
}

func ownerKey(kind Kind, ownerID string) string {
	return string(kind) + "|" + ownerID
}

func (m *memAccounts) clone() *memAccounts {
	c := newMemAccounts()
	c.seq = m.seq
	for id, acc := range m.accounts {
		copied := *acc
		c.accounts[id] = &copied
	}
	for k, v := range m.byOwner {
		c.byOwner[k] = v
	}
	for id, lines := range m.bills {
		c.bills[id] = append([]BillingLine(nil), lines...)
	}
	for id, lines := range m.payments {
		c.payments[id] = append([]PaymentLine(nil), lines...)
	}
	return c
}

func (m *memAccounts) Ensure(_ context.Context, kind Kind, ownerID, name string) (*Account, error) {
	if id, ok := m.byOwner[ownerKey(kind, ownerID)]; ok {
		acc := *m.accounts[id]
		return &acc, nil
	}
	m.seq++
	acc := &Account{ID: m.seq, Kind: kind, OwnerID: ownerID, Name: name}
	m.accounts[acc.ID] = acc
	m.byOwner[ownerKey(kind, ownerID)] = acc.ID
	out := *acc
	return &out, nil
}

func (m *memAccounts) GetByOwner(_ context.Context, kind Kind, ownerID string) (*Account, error) {
	id, ok := m.byOwner[ownerKey(kind, ownerID)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	acc := *m.accounts[id]
	return &acc, nil
}

func (m *memAccounts) GetByID(_ context.Context, id int64) (*Account, error) {
	acc, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	out := *acc
	return &out, nil
}

func (m *memAccounts) AddBillingLine(_ context.Context, accountID int64, line BillingLine) error {
	line.AccountID = accountID
	m.bills[accountID] = append(m.bills[accountID], line)
	m.touched[accountID] = struct{}{}
	return nil
}

func (m *memAccounts) AddPaymentLine(_ context.Context, accountID int64, line PaymentLine) error {
	line.AccountID = accountID
	if line.Direction == "" {
		line.Direction = DirectionIn
	}
	m.payments[accountID] = append(m.payments[accountID], line)
	m.touched[accountID] = struct{}{}
	return nil
}

func (m *memAccounts) UpdatePaymentsByRef(_ context.Context, ref string, upd PaymentUpdate) (int64, error) {
	var n int64
	for id, lines := range m.payments {
		for i := range lines {
			if lines[i].ReferenceID != ref {
				continue
			}
			if upd.Amount != nil {
				lines[i].Amount = *upd.Amount
			}
			if upd.Date != nil {
				lines[i].Date = *upd.Date
			}
			if upd.Method != nil {
				lines[i].Method = *upd.Method
			}
			if upd.Remark != nil {
				lines[i].Remark = *upd.Remark
			}
			m.touched[id] = struct{}{}
			n++
		}
	}
	return n, nil
}

func (m *memAccounts) DeletePaymentsByRef(_ context.Context, ref string) (int64, error) {
	var n int64
	for id, lines := range m.payments {
		kept := lines[:0]
		for _, l := range lines {
			if l.ReferenceID == ref {
				m.touched[id] = struct{}{}
				n++
				continue
			}
			kept = append(kept, l)
		}
		m.payments[id] = kept
	}
	return n, nil
}

func (m *memAccounts) MovePaymentsByRef(_ context.Context, ref string, fromID, toID int64) error {
	var moved bool
	kept := m.payments[fromID][:0]
	for _, l := range m.payments[fromID] {
		if l.ReferenceID == ref {
			l.AccountID = toID
			m.payments[toID] = append(m.payments[toID], l)
			moved = true
			continue
		}
		kept = append(kept, l)
	}
	m.payments[fromID] = kept
	if !moved {
		return ErrReferenceNotFound
	}
	m.touched[fromID] = struct{}{}
	m.touched[toID] = struct{}{}
	return nil
}

func (m *memAccounts) RemoveDocBillingLines(_ context.Context, docNumber string) ([]int64, error) {
	var ids []int64
	for id, lines := range m.bills {
		kept := lines[:0]
		hit := false
		for _, l := range lines {
			if l.DocNumber == docNumber {
				hit = true
				continue
			}
			kept = append(kept, l)
		}
		m.bills[id] = kept
		if hit {
			m.touched[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memAccounts) RemoveDocPaymentLines(_ context.Context, docNumber string) ([]int64, error) {
	var ids []int64
	for id, lines := range m.payments {
		kept := lines[:0]
		hit := false
		for _, l := range lines {
			if l.DocNumber == docNumber {
				hit = true
				continue
			}
			kept = append(kept, l)
		}
		m.payments[id] = kept
		if hit {
			m.touched[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memAccounts) ResolveReference(_ context.Context, ref string) ([]ReferenceCopy, error) {
	var copies []ReferenceCopy
	for id, lines := range m.payments {
		for _, l := range lines {
			if l.ReferenceID == ref {
				acc := m.accounts[id]
				copies = append(copies, ReferenceCopy{AccountID: id, Kind: acc.Kind, OwnerID: acc.OwnerID, Line: l})
			}
		}
	}
	return copies, nil
}

func (m *memAccounts) Lines(_ context.Context, accountID int64) ([]BillingLine, []PaymentLine, error) {
	return append([]BillingLine(nil), m.bills[accountID]...), append([]PaymentLine(nil), m.payments[accountID]...), nil
}

func (m *memAccounts) SetTotals(_ context.Context, accountID int64, totals Totals, expectVersion int64) error {
	acc, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if acc.Version != expectVersion {
		return ErrVersionConflict
	}
	acc.Totals = totals
	acc.Version++
	return nil
}

func (m *memAccounts) Touched() []int64 {
	out := make([]int64, 0, len(m.touched))
	for id := range m.touched {
		out = append(out, id)
	}
	return out
}

// memStore implements Store[Batch] with copy-on-write batches so an
// aborted batch leaves committed state untouched.
type memStore struct {
	state *memAccounts
}

func newMemStore() *memStore {
	return &memStore{state: newMemAccounts()}
}

type memBatch struct {
	accounts *memAccounts
}

func (b memBatch) Accounts() AccountPort { return b.accounts }

func (s *memStore) Batch(ctx context.Context, fn func(ctx context.Context, batch Batch) error) error {
	work := s.state.clone()
	if err := fn(ctx, memBatch{accounts: work}); err != nil {
		return err
	}
	work.touched = make(map[int64]struct{})
	s.state = work
	return nil
}

func (s *memStore) Snapshot(ctx context.Context, kind Kind, ownerID string) (*Account, error) {
	acc, err := s.state.GetByOwner(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	acc.Bills, acc.Payments, _ = s.state.Lines(ctx, acc.ID)
	return acc, nil
}

func (s *memStore) ListAccounts(_ context.Context, kind Kind) ([]Account, error) {
	var out []Account
	for _, acc := range s.state.accounts {
		if acc.Kind == kind {
			out = append(out, *acc)
		}
	}
	return out, nil
}

func (s *memStore) FindReference(ctx context.Context, ref string) ([]ReferenceCopy, error) {
	copies, err := s.state.ResolveReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(copies) == 0 {
		return nil, ErrReferenceNotFound
	}
	return copies, nil
}

func newTestService(store *memStore) *Service {
	coord := NewCoordinator[Batch](store, nil)
	minter := NewMinter(func() time.Time { return time.UnixMilli(1700000000000).UTC() })
	return NewService(coord, store, minter, cache.NewSnapshot(nil, 0), nil, nil)
}

func mustAccount(t *testing.T, store *memStore, kind Kind, owner string) *Account {
	t.Helper()
	acc, err := store.Snapshot(context.Background(), kind, owner)
	require.NoError(t, err)
	return acc
}

func seedBill(t *testing.T, store *memStore, kind Kind, owner string, amount float64) {
	t.Helper()
	err := store.Batch(context.Background(), func(ctx context.Context, b Batch) error {
		acc, err := b.Accounts().Ensure(ctx, kind, owner, owner)
		if err != nil {
			return err
		}
		if err := b.Accounts().AddBillingLine(ctx, acc.ID, BillingLine{DocNumber: "TC1", Amount: amount, Date: time.Now()}); err != nil {
			return err
		}
		return FinalizeAccounts(ctx, b.Accounts())
	})
	require.NoError(t, err)
}

func TestRecordPaymentWritesBothCopies(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedBill(t, store, KindCustomer, "cust-1", 150)

	ref, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindCustomer, PartyID: "cust-1", PartyName: "Customer One",
		Amount: 80, Method: "hdfc", SubmittedBy: "ops",
	})
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	cust := mustAccount(t, store, KindCustomer, "cust-1")
	require.Equal(t, 150.0, cust.Totals.Billed)
	require.Equal(t, 80.0, cust.Totals.Paid)
	require.Equal(t, 70.0, cust.Totals.Pending)
	require.Len(t, cust.Payments, 1)
	require.Equal(t, ref, cust.Payments[0].ReferenceID)

	cash := mustAccount(t, store, KindCash, "hdfc")
	require.Len(t, cash.Payments, 1)
	require.Equal(t, ref, cash.Payments[0].ReferenceID)
	require.Equal(t, DirectionIn, cash.Payments[0].Direction)
	require.Equal(t, 80.0, cash.Totals.Pending)
}

func TestRecordPaymentSupplierFlowsOutOfCash(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedBill(t, store, KindSupplier, "sup-1", 200)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindSupplier, PartyID: "sup-1", Amount: 120, Method: "cash", SubmittedBy: "ops",
	})
	require.NoError(t, err)

	cash := mustAccount(t, store, KindCash, "cash")
	require.Equal(t, DirectionOut, cash.Payments[0].Direction)
	require.Equal(t, -120.0, cash.Totals.Pending)
}

func TestRecordPaymentOverpayAbortsWholeBatch(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedBill(t, store, KindCustomer, "cust-1", 100)

	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindCustomer, PartyID: "cust-1", Amount: 90, Method: "hdfc", SubmittedBy: "ops",
	})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindCustomer, PartyID: "cust-1", Amount: 90, Method: "hdfc", SubmittedBy: "ops",
	})
	require.Error(t, err)
	require.Equal(t, shared.KindInvariant, shared.KindOf(err))

	// Neither the party line nor the cash copy survived the abort.
	cust := mustAccount(t, store, KindCustomer, "cust-1")
	require.Len(t, cust.Payments, 1)
	require.Equal(t, 10.0, cust.Totals.Pending)
	cash := mustAccount(t, store, KindCash, "hdfc")
	require.Len(t, cash.Payments, 1)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindCash, PartyID: "x", Amount: 10, Method: "cash",
	})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindCustomer, PartyID: "x", Amount: -5, Method: "cash",
	})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestTransferMovesBalanceBetweenCashAccounts(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	outRef, inRef, err := svc.Transfer(context.Background(), TransferInput{
		FromAccount: "hdfc", ToAccount: "sbi", Amount: 500, SubmittedBy: "ops",
	})
	require.NoError(t, err)
	require.Equal(t, PairedRef(outRef), inRef)

	src := mustAccount(t, store, KindCash, "hdfc")
	dst := mustAccount(t, store, KindCash, "sbi")
	require.Equal(t, -500.0, src.Totals.Pending)
	require.Equal(t, 500.0, dst.Totals.Pending)
	require.Equal(t, DirectionOut, src.Payments[0].Direction)
	require.Equal(t, DirectionIn, dst.Payments[0].Direction)
}

func TestTransferRejectsSameAccount(t *testing.T) {
	svc := newTestService(newMemStore())
	_, _, err := svc.Transfer(context.Background(), TransferInput{
		FromAccount: "hdfc", ToAccount: "hdfc", Amount: 100,
	})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestEditPaymentUpdatesEveryCopy(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedBill(t, store, KindCustomer, "cust-1", 200)

	ref, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindCustomer, PartyID: "cust-1", Amount: 80, Method: "hdfc", SubmittedBy: "ops",
	})
	require.NoError(t, err)

	amount := 50.0
	require.NoError(t, svc.EditPayment(context.Background(), ref, PaymentUpdate{Amount: &amount}))

	cust := mustAccount(t, store, KindCustomer, "cust-1")
	require.Equal(t, 50.0, cust.Payments[0].Amount)
	require.Equal(t, 150.0, cust.Totals.Pending)
	cash := mustAccount(t, store, KindCash, "hdfc")
	require.Equal(t, 50.0, cash.Payments[0].Amount)
	require.Equal(t, 50.0, cash.Totals.Pending)
}

func TestEditPaymentMethodRelocatesCashCopy(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedBill(t, store, KindCustomer, "cust-1", 200)

	ref, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindCustomer, PartyID: "cust-1", Amount: 80, Method: "hdfc", SubmittedBy: "ops",
	})
	require.NoError(t, err)

	method := "sbi"
	require.NoError(t, svc.EditPayment(context.Background(), ref, PaymentUpdate{Method: &method}))

	old := mustAccount(t, store, KindCash, "hdfc")
	require.Empty(t, old.Payments)
	require.Zero(t, old.Totals.Pending)
	moved := mustAccount(t, store, KindCash, "sbi")
	require.Len(t, moved.Payments, 1)
	require.Equal(t, 80.0, moved.Totals.Pending)
	require.Equal(t, "sbi", moved.Payments[0].Method)
}

func TestEditPaymentUnknownReference(t *testing.T) {
	svc := newTestService(newMemStore())
	amount := 10.0
	err := svc.EditPayment(context.Background(), "PAY123456", PaymentUpdate{Amount: &amount})
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestEditTransferLegRejectsMethodChange(t *testing.T) {
	svc := newTestService(newMemStore())
	method := "sbi"
	err := svc.EditPayment(context.Background(), "OUT123", PaymentUpdate{Method: &method})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestEditTransferLegUpdatesCounterpart(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	outRef, _, err := svc.Transfer(context.Background(), TransferInput{
		FromAccount: "hdfc", ToAccount: "sbi", Amount: 500, SubmittedBy: "ops",
	})
	require.NoError(t, err)

	amount := 300.0
	require.NoError(t, svc.EditPayment(context.Background(), outRef, PaymentUpdate{Amount: &amount}))

	src := mustAccount(t, store, KindCash, "hdfc")
	dst := mustAccount(t, store, KindCash, "sbi")
	require.Equal(t, -300.0, src.Totals.Pending)
	require.Equal(t, 300.0, dst.Totals.Pending)
}

func TestDeletePaymentRestoresBothSides(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedBill(t, store, KindCustomer, "cust-1", 200)

	ref, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		PartyKind: KindCustomer, PartyID: "cust-1", Amount: 80, Method: "hdfc", SubmittedBy: "ops",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePayment(context.Background(), ref))

	cust := mustAccount(t, store, KindCustomer, "cust-1")
	require.Empty(t, cust.Payments)
	require.Equal(t, 200.0, cust.Totals.Pending)
	cash := mustAccount(t, store, KindCash, "hdfc")
	require.Empty(t, cash.Payments)
	require.Zero(t, cash.Totals.Pending)
}

func TestDeleteTransferLegRemovesCounterpart(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	outRef, inRef, err := svc.Transfer(context.Background(), TransferInput{
		FromAccount: "hdfc", ToAccount: "sbi", Amount: 500, SubmittedBy: "ops",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePayment(context.Background(), inRef))

	src := mustAccount(t, store, KindCash, "hdfc")
	dst := mustAccount(t, store, KindCash, "sbi")
	require.Empty(t, src.Payments)
	require.Empty(t, dst.Payments)
	require.Zero(t, src.Totals.Pending)
	require.Zero(t, dst.Totals.Pending)
	_, err = store.FindReference(context.Background(), outRef)
	require.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestStatementUnknownAccount(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Statement(context.Background(), KindCustomer, "ghost")
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestStatementReflectsCommittedState(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedBill(t, store, KindSeller, "sel-1", 300)

	acc, err := svc.Statement(context.Background(), KindSeller, "sel-1")
	require.NoError(t, err)
	require.Equal(t, 300.0, acc.Totals.Billed)
	require.Len(t, acc.Bills, 1)
}

func TestMovementSymmetryAcrossManyPayments(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedBill(t, store, KindCustomer, "cust-1", 1000)

	for i := range 5 {
		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
			PartyKind: KindCustomer, PartyID: "cust-1",
			Amount: float64(100 + i), Method: "hdfc", SubmittedBy: "ops",
			Remark: fmt.Sprintf("installment %d", i+1),
		})
		require.NoError(t, err)
	}

	cust := mustAccount(t, store, KindCustomer, "cust-1")
	cash := mustAccount(t, store, KindCash, "hdfc")
	require.Equal(t, cust.Totals.Paid, cash.Totals.Pending)
	require.Len(t, cust.Payments, len(cash.Payments))
}
