package bigquery

import (
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

const (
	statementsTable   = "statements"
	transactionsTable = "statement_transactions"
	statementDateFmt  = "01/02/2006"
	numericScale      = 9 // BigQuery NUMERIC keeps 9 fractional digits
)

// StatementRow is one row of the statements table.
type StatementRow struct {
	StatementID    string `bigquery:"statement_id"`
	Filename       string `bigquery:"filename"`
	AccountHolder  string `bigquery:"account_holder"`
	AccountNumber  string `bigquery:"account_number"`
	PeriodStartRaw string `bigquery:"period_start_raw"`
	PeriodEndRaw   string `bigquery:"period_end_raw"`

	PeriodStart bigquery.NullDate `bigquery:"period_start"` // NULL when the raw text is not MM/DD/YYYY
	PeriodEnd   bigquery.NullDate `bigquery:"period_end"`

	BeginningBalance *big.Rat `bigquery:"beginning_balance"` // NUMERIC
	EndingBalance    *big.Rat `bigquery:"ending_balance"`    // NUMERIC

	CurrencySymbol string   `bigquery:"currency_symbol"`
	Warnings       []string `bigquery:"warnings"` // REPEATED STRING
	SourceURI      string   `bigquery:"source_uri"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// TransactionRow is one row of the statement_transactions table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"`
	StatementID   string `bigquery:"statement_id"`
	LineNo        int64  `bigquery:"line_no"`

	DateRaw         string            `bigquery:"date_raw"`
	TransactionDate bigquery.NullDate `bigquery:"transaction_date"`

	Description string   `bigquery:"description"`
	Debit       *big.Rat `bigquery:"debit"`
	Credit      *big.Rat `bigquery:"credit"`
	Balance     *big.Rat `bigquery:"balance"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// parseStatementDate reads MM/DD/YYYY, optionally followed by a time, into a DATE.
func parseStatementDate(s string) bigquery.NullDate {
	s = strings.TrimSpace(s)
	if len(s) > len(statementDateFmt) {
		s = s[:len(statementDateFmt)]
	}
	t, err := time.Parse(statementDateFmt, s)
	if err != nil {
		return bigquery.NullDate{}
	}
	return bigquery.NullDate{Date: civil.DateOf(t), Valid: true}
}

func toNumeric(f float64) *big.Rat {
	return decimal.NewFromFloat(f).Round(numericScale).Rat()
}

func fromNumeric(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}

// ToRows converts a persisted statement into BigQuery rows.
func ToRows(ps *statement.PersistedStatement) (*StatementRow, []*TransactionRow) {
	sr := &StatementRow{
		StatementID:      ps.ID,
		Filename:         ps.Filename,
		AccountHolder:    ps.AccountHolder,
		AccountNumber:    ps.AccountNumber,
		PeriodStartRaw:   ps.PeriodStart,
		PeriodEndRaw:     ps.PeriodEnd,
		PeriodStart:      parseStatementDate(ps.PeriodStart),
		PeriodEnd:        parseStatementDate(ps.PeriodEnd),
		BeginningBalance: toNumeric(ps.BeginningBalance),
		EndingBalance:    toNumeric(ps.EndingBalance),
		CurrencySymbol:   ps.CurrencySymbol,
		Warnings:         append([]string{}, ps.Warnings...),
		SourceURI:        ps.SourceURI,
		CreatedTS:        ps.CreatedAt,
	}

	txRows := make([]*TransactionRow, 0, len(ps.Transactions))
	for _, t := range ps.Transactions {
		txRows = append(txRows, &TransactionRow{
			TransactionID:   t.ID,
			StatementID:     ps.ID,
			LineNo:          int64(t.LineNo),
			DateRaw:         t.Date,
			TransactionDate: parseStatementDate(t.Date),
			Description:     t.Description,
			Debit:           toNumeric(t.Debit),
			Credit:          toNumeric(t.Credit),
			Balance:         toNumeric(t.Balance),
			CreatedTS:       ps.CreatedAt,
		})
	}
	return sr, txRows
}

// FromRows rebuilds a persisted statement. txRows must already be ordered by line_no.
func FromRows(sr *StatementRow, txRows []*TransactionRow) *statement.PersistedStatement {
	ps := &statement.PersistedStatement{
		ID:               sr.StatementID,
		Filename:         sr.Filename,
		AccountHolder:    sr.AccountHolder,
		AccountNumber:    sr.AccountNumber,
		PeriodStart:      sr.PeriodStartRaw,
		PeriodEnd:        sr.PeriodEndRaw,
		BeginningBalance: fromNumeric(sr.BeginningBalance),
		EndingBalance:    fromNumeric(sr.EndingBalance),
		CurrencySymbol:   sr.CurrencySymbol,
		Warnings:         append([]string{}, sr.Warnings...),
		SourceURI:        sr.SourceURI,
		CreatedAt:        sr.CreatedTS,
	}
	if txRows == nil {
		return ps
	}

	ps.Transactions = make([]statement.PersistedTransaction, 0, len(txRows))
	for _, r := range txRows {
		ps.Transactions = append(ps.Transactions, statement.PersistedTransaction{
			ID:          r.TransactionID,
			StatementID: r.StatementID,
			LineNo:      int(r.LineNo),
			Date:        r.DateRaw,
			Description: r.Description,
			Debit:       fromNumeric(r.Debit),
			Credit:      fromNumeric(r.Credit),
			Balance:     fromNumeric(r.Balance),
		})
	}
	return ps
}
