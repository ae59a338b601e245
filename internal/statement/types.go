package statement

const (
	// DefaultAccountHolder is what the extractor reports when no holder is printed.
	DefaultAccountHolder = "Unknown"
	// DefaultAccountNumber is what the extractor reports when no number is printed.
	DefaultAccountNumber = "N/A"
	// DefaultCurrencySymbol applies when the extractor omits currency_symbol.
	DefaultCurrencySymbol = "$"
)

// Transaction is one ledger line of a statement.
// Exactly one of Debit and Credit is conventionally non-zero. Balance is 0.0
// when the statement prints no running balance for the line.
type Transaction struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	Balance     float64 `json:"balance"`
}

// Record is the typed result of a successful extraction.
// A Record is never mutated after Decode returns it; enrichment builds a new value.
type Record struct {
	AccountHolder    string        `json:"account_holder"`
	AccountNumber    string        `json:"account_number"`
	PeriodStart      string        `json:"period_start"`
	PeriodEnd        string        `json:"period_end"`
	BeginningBalance float64       `json:"beginning_balance"`
	EndingBalance    float64       `json:"ending_balance"`
	CurrencySymbol   string        `json:"currency_symbol"`
	Transactions     []Transaction `json:"transactions"`
	Warnings         []string      `json:"warnings"`
}

// Summary is the display-ready reconciliation verdict.
// Amounts are rounded to two decimals; IsConsistent was computed before rounding.
type Summary struct {
	TotalCredits      float64 `json:"total_credits"`
	TotalDebits       float64 `json:"total_debits"`
	CalculatedBalance float64 `json:"calculated_balance"`
	IsConsistent      bool    `json:"is_consistent"`
}

// Enriched is a Record with its Summary attached. It is the parse API response body.
type Enriched struct {
	Record
	Summary Summary `json:"summary"`
}

// Clone returns a deep copy of r with nil slices normalized to empty ones.
func (r Record) Clone() Record {
	out := r
	out.Transactions = make([]Transaction, len(r.Transactions))
	copy(out.Transactions, r.Transactions)
	out.Warnings = make([]string, len(r.Warnings))
	copy(out.Warnings, r.Warnings)
	return out
}
