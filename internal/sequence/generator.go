// Package sequence produces human-readable, monotonically increasing
// document numbers per namespace: <PREFIX><n> with numeric-aware
// ordering, backed by an atomic per-namespace counter.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Namespace binds a counter name to its id prefix.
type Namespace struct {
	Name   string
	Prefix string
}

// TxPort is the transactional surface of the counter store.
type TxPort interface {
	// Increment atomically bumps the namespace counter and returns the
	// new value, creating the counter at 1 when absent.
	Increment(ctx context.Context, namespace string) (int64, error)
	// Raise lifts the counter to at least floor and returns its value.
	Raise(ctx context.Context, namespace string, floor int64) (int64, error)
	// Exists reports whether an id is already used in the namespace.
	Exists(ctx context.Context, namespace, id string) (bool, error)
	// Numbers lists every id currently used in the namespace.
	Numbers(ctx context.Context, namespace string) ([]string, error)
}

// Generator issues the next document number. The scan-for-max race of
// the naive design is closed by the atomic counter; a numeric-aware
// scan reconciles the counter with pre-existing ids the first time a
// namespace is seen.
type Generator struct{}

// Next returns the next free id for the namespace. A caller-supplied
// candidate is used only when it matches the prefix and is not taken;
// otherwise generation falls back to the counter.
func (Generator) Next(ctx context.Context, tx TxPort, ns Namespace, candidate string) (string, error) {
	if candidate != "" && strings.HasPrefix(candidate, ns.Prefix) {
		taken, err := tx.Exists(ctx, ns.Name, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			// Keep the counter ahead of the claimed suffix so the
			// generated stream never collides with it.
			if suffix, err := strconv.ParseInt(candidate[len(ns.Prefix):], 10, 64); err == nil {
				if _, err := tx.Raise(ctx, ns.Name, suffix); err != nil {
					return "", err
				}
			}
			return candidate, nil
		}
	}

	seq, err := tx.Increment(ctx, ns.Name)
	if err != nil {
		return "", err
	}
	if seq == 1 {
		seq, err = reconcile(ctx, tx, ns, seq)
		if err != nil {
			return "", err
		}
	}
	for range 3 {
		id := fmt.Sprintf("%s%d", ns.Prefix, seq)
		taken, err := tx.Exists(ctx, ns.Name, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
		seq, err = reconcile(ctx, tx, ns, seq)
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("sequence: namespace %s exhausted retries", ns.Name)
}

func reconcile(ctx context.Context, tx TxPort, ns Namespace, current int64) (int64, error) {
	existing, err := tx.Numbers(ctx, ns.Name)
	if err != nil {
		return 0, err
	}
	max := MaxNumeric(existing, ns.Prefix)
	if max < current {
		return current, nil
	}
	return tx.Raise(ctx, ns.Name, max+1)
}

// MaxNumeric returns the greatest numeric suffix among ids carrying the
// prefix, using numeric-aware ordering so TC10 sorts after TC2. Zero
// when none match.
func MaxNumeric(ids []string, prefix string) int64 {
	matching := make([]string, 0, len(ids))
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if _, err := strconv.ParseInt(id[len(prefix):], 10, 64); err != nil {
			continue
		}
		matching = append(matching, id)
	}
	if len(matching) == 0 {
		return 0
	}
	collate.New(language.Und, collate.Numeric).SortStrings(matching)
	greatest := matching[len(matching)-1]
	suffix, _ := strconv.ParseInt(greatest[len(prefix):], 10, 64)
	return suffix
}
