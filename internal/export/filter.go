// Package export shapes reconciled transactions for display and download.
package export

import (
	"fmt"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// FilterType selects which side of the ledger is shown.
type FilterType string

const (
	FilterAll     FilterType = "all"
	FilterDebits  FilterType = "debits"
	FilterCredits FilterType = "credits"
)

// ParseFilterType accepts "all", "debits" or "credits" in any case. Empty means all.
func ParseFilterType(s string) (FilterType, error) {
	switch FilterType(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterDebits:
		return FilterDebits, nil
	case FilterCredits:
		return FilterCredits, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q (want all, debits or credits)", s)
	}
}

// Filter is the presentation filter applied before display or export.
type Filter struct {
	Search string
	Type   FilterType
}

// Apply returns the transactions matching f in their original order.
// The input slice is not modified.
func (f Filter) Apply(txs []statement.Transaction) []statement.Transaction {
	needle := strings.ToLower(f.Search)
	out := make([]statement.Transaction, 0, len(txs))
	for _, tx := range txs {
		if needle != "" && !strings.Contains(strings.ToLower(tx.Description), needle) {
			continue
		}
		switch f.Type {
		case FilterDebits:
			if !(tx.Debit > 0) {
				continue
			}
		case FilterCredits:
			if !(tx.Credit > 0) {
				continue
			}
		}
		out = append(out, tx)
	}
	return out
}
