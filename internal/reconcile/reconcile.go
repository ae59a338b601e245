// Package reconcile checks the arithmetic consistency of an extracted statement.
//
// The running total is beginning + credits - debits. A statement is consistent
// when that total lies strictly within one cent of the printed ending balance.
// The comparison is made on exact decimals before any display rounding.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// Tolerance is the largest absolute difference (exclusive) still accepted as consistent.
var Tolerance = decimal.New(1, -2)

// DisplayPlaces is the number of decimals kept in a Summary.
const DisplayPlaces = 2

// Result holds the unrounded reconciliation figures.
type Result struct {
	Beginning         decimal.Decimal
	Ending            decimal.Decimal
	TotalCredits      decimal.Decimal
	TotalDebits       decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal // CalculatedBalance - Ending
	TransactionCount  int
	IsConsistent      bool
}

// Compute runs the reconciliation over a typed record.
func Compute(rec *statement.Record) Result {
	if rec == nil {
		return compute(decimal.Zero, decimal.Zero, nil)
	}
	lines := make([]line, 0, len(rec.Transactions))
	for _, tx := range rec.Transactions {
		lines = append(lines, line{debit: coerce(tx.Debit), credit: coerce(tx.Credit)})
	}
	return compute(coerce(rec.BeginningBalance), coerce(rec.EndingBalance), lines)
}

// ComputeRaw runs the same algorithm over an untyped document.
// Missing, null or non-numeric amounts count as zero and it never fails.
func ComputeRaw(doc map[string]any) Result {
	var lines []line
	if items, ok := doc["transactions"].([]any); ok {
		lines = make([]line, 0, len(items))
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			lines = append(lines, line{debit: coerce(m["debit"]), credit: coerce(m["credit"])})
		}
	}
	return compute(coerce(doc["beginning_balance"]), coerce(doc["ending_balance"]), lines)
}

type line struct {
	debit, credit decimal.Decimal
}

func compute(beginning, ending decimal.Decimal, lines []line) Result {
	credits := decimal.Zero
	debits := decimal.Zero
	for _, l := range lines {
		credits = credits.Add(l.credit)
		debits = debits.Add(l.debit)
	}

	calculated := beginning.Add(credits).Sub(debits)
	diff := calculated.Sub(ending)

	return Result{
		Beginning:         beginning,
		Ending:            ending,
		TotalCredits:      credits,
		TotalDebits:       debits,
		CalculatedBalance: calculated,
		Difference:        diff,
		TransactionCount:  len(lines),
		IsConsistent:      diff.Abs().LessThan(Tolerance),
	}
}

// Summary rounds the figures for display. IsConsistent is carried over unchanged.
func (r Result) Summary() statement.Summary {
	return statement.Summary{
		TotalCredits:      r.TotalCredits.Round(DisplayPlaces).InexactFloat64(),
		TotalDebits:       r.TotalDebits.Round(DisplayPlaces).InexactFloat64(),
		CalculatedBalance: r.CalculatedBalance.Round(DisplayPlaces).InexactFloat64(),
		IsConsistent:      r.IsConsistent,
	}
}

// Reconcile returns the display summary for rec.
func Reconcile(rec *statement.Record) statement.Summary {
	return Compute(rec).Summary()
}

// Enrich returns a copy of rec with its summary attached. rec is left untouched.
func Enrich(rec *statement.Record) *statement.Enriched {
	out := &statement.Enriched{Summary: Reconcile(rec)}
	if rec != nil {
		out.Record = rec.Clone()
	} else {
		out.Record = statement.Record{Transactions: []statement.Transaction{}, Warnings: []string{}}
	}
	return out
}
