package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// money renders v with two decimals behind the currency symbol; negatives keep the sign in front.
func money(symbol string, v float64) string {
	d := decimal.NewFromFloat(v).Round(reconcile.DisplayPlaces)
	if d.IsNegative() {
		return "-" + symbol + d.Abs().StringFixed(reconcile.DisplayPlaces)
	}
	return symbol + d.StringFixed(reconcile.DisplayPlaces)
}

func amountCell(symbol string, v float64) string {
	if v == 0 {
		return ""
	}
	return money(symbol, v)
}

// printDashboard writes the summary figures and verdict of es.
func printDashboard(w io.Writer, es *statement.Enriched) {
	sym := es.CurrencySymbol

	fmt.Fprintf(w, "Account Holder:     %s\n", es.AccountHolder)
	fmt.Fprintf(w, "Account Number:     %s\n", es.AccountNumber)
	fmt.Fprintf(w, "Period:             %s - %s\n\n", es.PeriodStart, es.PeriodEnd)

	fmt.Fprintf(w, "Beginning Balance:  %s\n", money(sym, es.BeginningBalance))
	fmt.Fprintf(w, "Total Credits:      %s\n", money(sym, es.Summary.TotalCredits))
	fmt.Fprintf(w, "Total Debits:       %s\n", money(sym, es.Summary.TotalDebits))
	fmt.Fprintf(w, "Ending Balance:     %s\n", money(sym, es.EndingBalance))
	fmt.Fprintf(w, "Calculated Balance: %s\n\n", money(sym, es.Summary.CalculatedBalance))

	if es.Summary.IsConsistent {
		fmt.Fprintln(w, "Verification: balances reconcile")
	} else {
		fmt.Fprintf(w, "Verification Mismatch: calculated ending balance %s does not match statement ending balance %s\n",
			money(sym, es.Summary.CalculatedBalance), money(sym, es.EndingBalance))
	}

	if len(es.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings (%d):\n", len(es.Warnings))
		for _, warn := range es.Warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
	}
}

// printTransactions writes txs as an aligned table.
func printTransactions(w io.Writer, symbol string, txs []statement.Transaction, total int) {
	fmt.Fprintf(w, "\nTransactions (%d of %d):\n", len(txs), total)
	if len(txs) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tDescription\tDebit\tCredit\tBalance\t")
	for _, tx := range txs {
		balance := money(symbol, tx.Balance)
		if tx.Balance == 0 {
			balance = ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			tx.Date,
			strings.ReplaceAll(tx.Description, "\t", " "),
			amountCell(symbol, tx.Debit),
			amountCell(symbol, tx.Credit),
			balance,
		)
	}
	tw.Flush()
}

// printResult writes the unrounded figures of a raw reconciliation.
func printResult(w io.Writer, r reconcile.Result) {
	fmt.Fprintf(w, "Transactions:       %d\n", r.TransactionCount)
	fmt.Fprintf(w, "Beginning Balance:  %s\n", r.Beginning.String())
	fmt.Fprintf(w, "Total Credits:      %s\n", r.TotalCredits.String())
	fmt.Fprintf(w, "Total Debits:       %s\n", r.TotalDebits.String())
	fmt.Fprintf(w, "Ending Balance:     %s\n", r.Ending.String())
	fmt.Fprintf(w, "Calculated Balance: %s\n", r.CalculatedBalance.String())
	fmt.Fprintf(w, "Difference:         %s\n", r.Difference.String())
	if r.IsConsistent {
		fmt.Fprintln(w, "Verification: balances reconcile")
	} else {
		fmt.Fprintf(w, "Verification Mismatch: off by %s\n", r.Difference.Abs().String())
	}
}
