package ledger

import "time"

// RecordPaymentRequest is the boundary payload for a simple payment.
type RecordPaymentRequest struct {
	PartyKind   string  `json:"partyKind" validate:"required,oneof=CUSTOMER SUPPLIER SELLER TRANSPORT"`
	PartyID     string  `json:"partyId" validate:"required"`
	PartyName   string  `json:"partyName"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Date        string  `json:"date"`
	Method      string  `json:"method" validate:"required"`
	SubmittedBy string  `json:"submittedBy" validate:"required"`
	Remark      string  `json:"remark"`
	DocNumber   string  `json:"invoiceNo"`
}

// TransferRequest is the boundary payload for a cash transfer.
type TransferRequest struct {
	FromAccount string  `json:"fromAccount" validate:"required"`
	ToAccount   string  `json:"toAccount" validate:"required,nefield=FromAccount"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Date        string  `json:"date"`
	SubmittedBy string  `json:"submittedBy" validate:"required"`
	Remark      string  `json:"remark"`
}

// EditPaymentRequest carries the optional fields of a movement edit.
type EditPaymentRequest struct {
	Amount *float64 `json:"amount" validate:"omitempty,gt=0"`
	Date   *string  `json:"date"`
	Method *string  `json:"method" validate:"omitempty,min=1"`
	Remark *string  `json:"remark"`
}

// BillingLineDTO is one charge on the wire.
type BillingLineDTO struct {
	DocNumber string    `json:"invoiceNo"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
}

// PaymentLineDTO is one payment copy on the wire.
type PaymentLineDTO struct {
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Method      string    `json:"method"`
	SubmittedBy string    `json:"submittedBy"`
	Remark      string    `json:"remark,omitempty"`
	ReferenceID string    `json:"referenceId"`
	DocNumber   string    `json:"invoiceNo,omitempty"`
	Direction   string    `json:"direction,omitempty"`
}

// StatementResponse is the aggregate snapshot on the wire. Total field
// names vary by aggregate kind, so the three variants are emitted as
// optional fields and exactly one trio is populated.
type StatementResponse struct {
	OwnerID  string           `json:"ownerId"`
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	Bills    []BillingLineDTO `json:"bills"`
	Payments []PaymentLineDTO `json:"payments"`

	// Receivable/payable books (customer, supplier).
	TotalBillAmount *float64 `json:"totalBillAmount,omitempty"`
	PaidAmount      *float64 `json:"paidAmount,omitempty"`
	PendingAmount   *float64 `json:"pendingAmount,omitempty"`

	// Seller and transport books.
	TotalAmountBilled *float64 `json:"totalAmountBilled,omitempty"`
	TotalAmountPaid   *float64 `json:"totalAmountPaid,omitempty"`
	PaymentRemaining  *float64 `json:"paymentRemaining,omitempty"`

	// Cash/bank books.
	BalanceAmount *float64 `json:"balanceAmount,omitempty"`
}

// NewStatementResponse maps an aggregate to its wire shape.
func NewStatementResponse(acc *Account) StatementResponse {
	resp := StatementResponse{
		OwnerID:  acc.OwnerID,
		Name:     acc.Name,
		Kind:     string(acc.Kind),
		Bills:    make([]BillingLineDTO, 0, len(acc.Bills)),
		Payments: make([]PaymentLineDTO, 0, len(acc.Payments)),
	}
	for _, b := range acc.Bills {
		resp.Bills = append(resp.Bills, BillingLineDTO{DocNumber: b.DocNumber, Amount: b.Amount, Date: b.Date, Status: b.Status})
	}
	for _, p := range acc.Payments {
		dto := PaymentLineDTO{
			Amount: p.Amount, Date: p.Date, Method: p.Method,
			SubmittedBy: p.SubmittedBy, Remark: p.Remark,
			ReferenceID: p.ReferenceID, DocNumber: p.DocNumber,
		}
		if acc.Kind == KindCash {
			dto.Direction = string(p.Direction)
		}
		resp.Payments = append(resp.Payments, dto)
	}
	t := acc.Totals
	switch acc.Kind {
	case KindCash:
		resp.BalanceAmount = &t.Pending
	case KindSeller, KindTransport:
		resp.TotalAmountBilled = &t.Billed
		resp.TotalAmountPaid = &t.Paid
		resp.PaymentRemaining = &t.Pending
	default:
		resp.TotalBillAmount = &t.Billed
		resp.PaidAmount = &t.Paid
		resp.PendingAmount = &t.Pending
	}
	return resp
}
