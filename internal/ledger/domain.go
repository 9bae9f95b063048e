// Package ledger keeps the denormalized account aggregates of the
// trading book consistent: billing lines, payment lines, and the
// derived totals that summarize them.
package ledger

import (
	"errors"
	"time"
)

// Kind enumerates account aggregate kinds.
type Kind string

const (
	KindCustomer  Kind = "CUSTOMER"
	KindSupplier  Kind = "SUPPLIER"
	KindCash      Kind = "CASH"
	KindSeller    Kind = "SELLER"
	KindTransport Kind = "TRANSPORT"
)

// Valid reports whether the kind is one of the five account kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCustomer, KindSupplier, KindCash, KindSeller, KindTransport:
		return true
	}
	return false
}

// OverdraftPolicy names the per-kind rule for negative derived balances.
type OverdraftPolicy string

const (
	// RejectNegative aborts any commit that would leave pending < 0.
	RejectNegative OverdraftPolicy = "REJECT_NEGATIVE"
	// AllowNegative permits a negative balance (cash/bank overdraft).
	AllowNegative OverdraftPolicy = "ALLOW_NEGATIVE"
)

// PolicyFor returns the overdraft policy of an account kind. Receivable
// and payable books never go negative; a cash account may overdraft.
func PolicyFor(kind Kind) OverdraftPolicy {
	if kind == KindCash {
		return AllowNegative
	}
	return RejectNegative
}

// Direction marks a payment line as an inflow or outflow. Only cash
// accounts distinguish the two; receivable/payable lines are inflows.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// BillingLine records one charge against an account, tied to the
// business document that produced it.
type BillingLine struct {
	ID        int64
	AccountID int64
	DocNumber string
	Amount    float64
	Date      time.Time
	Status    string
}

// PaymentLine records one copy of a money movement inside an account.
type PaymentLine struct {
	ID          int64
	AccountID   int64
	Amount      float64
	Date        time.Time
	Method      string
	SubmittedBy string
	Remark      string
	ReferenceID string
	DocNumber   string
	Direction   Direction
}

// Totals are the derived summary of an account. For a cash account
// Billed is total in, Paid is total out, and Pending is the balance.
type Totals struct {
	Billed  float64
	Paid    float64
	Pending float64
}

// Account is one aggregate: owner identity, line lists, derived totals,
// and a version counter bumped on every committed write.
type Account struct {
	ID        int64
	Kind      Kind
	OwnerID   string
	Name      string
	Totals    Totals
	Version   int64
	Bills     []BillingLine
	Payments  []PaymentLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReferenceCopy is one stored copy of a payment movement, located by
// its reference id.
type ReferenceCopy struct {
	AccountID int64
	Kind      Kind
	OwnerID   string
	Line      PaymentLine
}

// PaymentUpdate carries the fields an edit may change. Every copy of
// the movement receives the same values.
type PaymentUpdate struct {
	Amount *float64
	Date   *time.Time
	Method *string
	Remark *string
}

var (
	// ErrNegativePending is raised when a commit would leave a
	// receivable/payable aggregate with pending < 0.
	ErrNegativePending = errors.New("ledger: pending balance would go negative")
	// ErrAccountNotFound indicates the aggregate does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrReferenceNotFound indicates no copy holds the reference id.
	ErrReferenceNotFound = errors.New("ledger: reference not found")
	// ErrVersionConflict indicates a concurrent write bumped the
	// aggregate version between read and commit.
	ErrVersionConflict = errors.New("ledger: account version conflict")
)
