package ledger

// Recalculate derives an account's totals from its authoritative line
// lists. It is pure: no store access, no clock, no mutation. The
// coordinator invokes it for every touched account before commit.
//
// Receivable/payable kinds: Billed = sum of billing lines, Paid = sum
// of payment lines, Pending = Billed - Paid, rejected when negative.
// Cash kind: Billed = sum of IN lines, Paid = sum of OUT lines,
// Pending = balance, negative permitted (overdraft).
func Recalculate(kind Kind, bills []BillingLine, payments []PaymentLine) (Totals, error) {
	var t Totals
	if kind == KindCash {
		for _, p := range payments {
			if p.Direction == DirectionOut {
				t.Paid += p.Amount
			} else {
				t.Billed += p.Amount
			}
		}
		t.Pending = t.Billed - t.Paid
		return t, nil
	}

	for _, b := range bills {
		t.Billed += b.Amount
	}
	for _, p := range payments {
		t.Paid += p.Amount
	}
	t.Pending = t.Billed - t.Paid

	if PolicyFor(kind) == RejectNegative && t.Pending < 0 {
		return Totals{}, ErrNegativePending
	}
	return t, nil
}
