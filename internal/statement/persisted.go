package statement

import "time"

// PersistedStatement is the relational mirror of a Record.
// ID and CreatedAt are assigned by the repository.
type PersistedStatement struct {
	ID               string                 `json:"id"`
	Filename         string                 `json:"filename"`
	AccountHolder    string                 `json:"account_holder"`
	AccountNumber    string                 `json:"account_number"`
	PeriodStart      string                 `json:"period_start"`
	PeriodEnd        string                 `json:"period_end"`
	BeginningBalance float64                `json:"beginning_balance"`
	EndingBalance    float64                `json:"ending_balance"`
	CurrencySymbol   string                 `json:"currency_symbol"`
	Warnings         []string               `json:"warnings"`
	SourceURI        string                 `json:"source_uri,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	Transactions     []PersistedTransaction `json:"transactions,omitempty"`
}

// PersistedTransaction is one stored ledger line. LineNo keeps the statement order.
type PersistedTransaction struct {
	ID          string  `json:"id"`
	StatementID string  `json:"statement_id"`
	LineNo      int     `json:"line_no"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	Balance     float64 `json:"balance"`
}

// NewPersisted builds the mirror of rec without IDs or timestamps.
func NewPersisted(rec *Record, filename, sourceURI string) *PersistedStatement {
	ps := &PersistedStatement{
		Filename:         filename,
		AccountHolder:    rec.AccountHolder,
		AccountNumber:    rec.AccountNumber,
		PeriodStart:      rec.PeriodStart,
		PeriodEnd:        rec.PeriodEnd,
		BeginningBalance: rec.BeginningBalance,
		EndingBalance:    rec.EndingBalance,
		CurrencySymbol:   rec.CurrencySymbol,
		Warnings:         append([]string{}, rec.Warnings...),
		SourceURI:        sourceURI,
		Transactions:     make([]PersistedTransaction, 0, len(rec.Transactions)),
	}
	for i, tx := range rec.Transactions {
		ps.Transactions = append(ps.Transactions, PersistedTransaction{
			LineNo:      i + 1,
			Date:        tx.Date,
			Description: tx.Description,
			Debit:       tx.Debit,
			Credit:      tx.Credit,
			Balance:     tx.Balance,
		})
	}
	return ps
}

// Record converts the stored statement back into an extraction Record.
func (ps *PersistedStatement) Record() *Record {
	rec := &Record{
		AccountHolder:    ps.AccountHolder,
		AccountNumber:    ps.AccountNumber,
		PeriodStart:      ps.PeriodStart,
		PeriodEnd:        ps.PeriodEnd,
		BeginningBalance: ps.BeginningBalance,
		EndingBalance:    ps.EndingBalance,
		CurrencySymbol:   ps.CurrencySymbol,
		Transactions:     make([]Transaction, 0, len(ps.Transactions)),
		Warnings:         append([]string{}, ps.Warnings...),
	}
	if rec.CurrencySymbol == "" {
		rec.CurrencySymbol = DefaultCurrencySymbol
	}
	for _, tx := range ps.Transactions {
		rec.Transactions = append(rec.Transactions, Transaction{
			Date:        tx.Date,
			Description: tx.Description,
			Debit:       tx.Debit,
			Credit:      tx.Credit,
			Balance:     tx.Balance,
		})
	}
	return rec
}
