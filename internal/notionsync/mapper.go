package notionsync

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// Property names of the Notion transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropStatementID   = "Statement ID"
	PropDate          = "Date"
	PropRawDate       = "Statement Date"
	PropAmount        = "Amount"
	PropDebit         = "Debit"
	PropCredit        = "Credit"
	PropBalance       = "Balance After"
	PropCurrency      = "Currency"
	PropAccount       = "Account"
	PropSourceFile    = "Source File"
	PropLine          = "Line"
	PropImportedAt    = "Imported At"
)

const statementDateLayout = "01/02/2006"

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

// parseDate reads the leading MM/DD/YYYY of a statement date.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(statementDateLayout) {
		s = s[:len(statementDateLayout)]
	}
	t, err := time.Parse(statementDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TransactionToNotionProperties maps one persisted ledger line to Notion properties.
// Amount is signed: credits positive, debits negative.
func TransactionToNotionProperties(ps *statement.PersistedStatement, tx statement.PersistedTransaction) notionapi.Properties {
	description := tx.Description
	if strings.TrimSpace(description) == "" {
		description = "(no description)"
	}

	currency := ps.CurrencySymbol
	if currency == "" {
		currency = statement.DefaultCurrencySymbol
	}

	props := notionapi.Properties{
		PropDescription:   notionapi.TitleProperty{Title: richText(description)},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(tx.ID)},
		PropStatementID:   notionapi.RichTextProperty{RichText: richText(ps.ID)},
		PropAmount:        notionapi.NumberProperty{Number: tx.Credit - tx.Debit},
		PropDebit:         notionapi.NumberProperty{Number: tx.Debit},
		PropCredit:        notionapi.NumberProperty{Number: tx.Credit},
		PropCurrency:      notionapi.SelectProperty{Select: notionapi.Option{Name: currency}},
		PropLine:          notionapi.NumberProperty{Number: float64(tx.LineNo)},
	}

	// A 0 balance may be a real zero or an unprinted one; both leave the property empty.
	if tx.Balance != 0 {
		props[PropBalance] = notionapi.NumberProperty{Number: tx.Balance}
	}

	if tx.Date != "" {
		props[PropRawDate] = notionapi.RichTextProperty{RichText: richText(tx.Date)}
	}
	if t, ok := parseDate(tx.Date); ok {
		d := notionapi.Date(t)
		props[PropDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	}

	if ps.AccountNumber != "" {
		props[PropAccount] = notionapi.RichTextProperty{RichText: richText(ps.AccountNumber)}
	}
	if ps.Filename != "" {
		props[PropSourceFile] = notionapi.RichTextProperty{RichText: richText(ps.Filename)}
	}
	if !ps.CreatedAt.IsZero() {
		created := notionapi.Date(ps.CreatedAt)
		props[PropImportedAt] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &created}}
	}

	return props
}

// extractTransactionID reads the Transaction ID property of a page.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	return plainText(page.Properties[PropTransactionID])
}

func plainText(prop notionapi.Property) string {
	var parts []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		parts = p.RichText
	case notionapi.RichTextProperty:
		parts = p.RichText
	case *notionapi.TitleProperty:
		parts = p.Title
	case notionapi.TitleProperty:
		parts = p.Title
	}
	if len(parts) == 0 {
		return ""
	}
	if parts[0].PlainText != "" {
		return parts[0].PlainText
	}
	if parts[0].Text != nil {
		return parts[0].Text.Content
	}
	return ""
}
