package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RefKind is the prefix of a reference id.
type RefKind string

const (
	// RefPayment marks a simple payment into or out of one book.
	RefPayment RefKind = "PAY"
	// RefIn marks the destination copy of an account transfer.
	RefIn RefKind = "IN"
	// RefOut marks the source copy of an account transfer.
	RefOut RefKind = "OUT"
)

// Minter produces reference ids of the form <KIND><epoch-millis>. The
// millisecond stamp is forced strictly increasing per process so two
// mints in the same millisecond never collide.
type Minter struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewMinter builds a Minter. A nil clock uses time.Now.
func NewMinter(clock func() time.Time) *Minter {
	if clock == nil {
		clock = time.Now
	}
	return &Minter{now: clock}
}

func (m *Minter) stamp() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := m.now().UTC().UnixMilli()
	if ms <= m.last {
		ms = m.last + 1
	}
	m.last = ms
	return ms
}

// Mint returns a fresh reference id for the given kind.
func (m *Minter) Mint(kind RefKind) string {
	return fmt.Sprintf("%s%d", kind, m.stamp())
}

// MintPair returns the paired OUT/IN reference ids of one transfer.
// Both share the same stamp, so either resolves to its counterpart.
func (m *Minter) MintPair() (out, in string) {
	ms := m.stamp()
	return fmt.Sprintf("%s%d", RefOut, ms), fmt.Sprintf("%s%d", RefIn, ms)
}

// ParseRef splits a reference id into its kind and stamp.
func ParseRef(ref string) (RefKind, int64, error) {
	for _, kind := range []RefKind{RefPayment, RefOut, RefIn} {
		if strings.HasPrefix(ref, string(kind)) {
			ms, err := strconv.ParseInt(ref[len(kind):], 10, 64)
			if err != nil {
				return "", 0, fmt.Errorf("ledger: malformed reference %q", ref)
			}
			return kind, ms, nil
		}
	}
	return "", 0, fmt.Errorf("ledger: unknown reference kind in %q", ref)
}

// PairedRef returns the counterpart of a transfer reference, or the
// empty string for a simple payment reference.
func PairedRef(ref string) string {
	kind, ms, err := ParseRef(ref)
	if err != nil {
		return ""
	}
	switch kind {
	case RefOut:
		return fmt.Sprintf("%s%d", RefIn, ms)
	case RefIn:
		return fmt.Sprintf("%s%d", RefOut, ms)
	}
	return ""
}
