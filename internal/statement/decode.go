package statement

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// MaxAmount bounds the magnitude of any amount the gate accepts.
const MaxAmount = 1e15

// Decode parses raw extractor output and runs it through the schema gate.
// It returns either a complete Record or an *InvalidExtractionError listing
// every violation; no partial record is ever returned.
func Decode(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &InvalidExtractionError{Violations: []Violation{
			{Path: "$", Message: fmt.Sprintf("not valid JSON: %v", err)},
		}}
	}
	if dec.More() {
		return nil, &InvalidExtractionError{Violations: []Violation{
			{Path: "$", Message: "trailing data after JSON document"},
		}}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &InvalidExtractionError{Violations: []Violation{
			{Path: "$", Message: fmt.Sprintf("has type %s, want object", jsonType(doc))},
		}}
	}
	return DecodeMap(obj)
}

// DecodeMap runs the schema gate over an already-decoded JSON object.
// Numbers may be json.Number, float64 or any Go integer type.
func DecodeMap(doc map[string]any) (*Record, error) {
	g := &gate{}

	rec := &Record{
		AccountHolder:    g.str(doc, "", "account_holder"),
		AccountNumber:    g.str(doc, "", "account_number"),
		PeriodStart:      g.str(doc, "", "period_start"),
		PeriodEnd:        g.str(doc, "", "period_end"),
		BeginningBalance: g.num(doc, "", "beginning_balance"),
		EndingBalance:    g.num(doc, "", "ending_balance"),
		CurrencySymbol:   DefaultCurrencySymbol,
		Warnings:         []string{},
	}

	if v, ok := doc["currency_symbol"]; ok && v != nil {
		if s, ok := v.(string); ok {
			rec.CurrencySymbol = s
		} else {
			g.addf("currency_symbol", "has type %s, want string", jsonType(v))
		}
	}

	if v, ok := doc["warnings"]; ok && v != nil {
		items, ok := v.([]any)
		if !ok {
			g.addf("warnings", "has type %s, want array", jsonType(v))
		} else {
			for i, item := range items {
				s, ok := item.(string)
				if !ok {
					g.addf(fmt.Sprintf("warnings[%d]", i), "has type %s, want string", jsonType(item))
					continue
				}
				rec.Warnings = append(rec.Warnings, s)
			}
		}
	}

	rec.Transactions = g.transactions(doc)

	if len(g.violations) > 0 {
		return nil, &InvalidExtractionError{Violations: g.violations}
	}
	return rec, nil
}

type gate struct {
	violations []Violation
}

func (g *gate) addf(path, format string, args ...any) {
	g.violations = append(g.violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func (g *gate) str(m map[string]any, prefix, key string) string {
	path := joinPath(prefix, key)
	v, ok := m[key]
	if !ok {
		g.addf(path, "missing required field")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		g.addf(path, "has type %s, want string", jsonType(v))
		return ""
	}
	return s
}

func (g *gate) num(m map[string]any, prefix, key string) float64 {
	path := joinPath(prefix, key)
	v, ok := m[key]
	if !ok {
		g.addf(path, "missing required field")
		return 0
	}
	f, ok := numberValue(v)
	if !ok {
		g.addf(path, "has type %s, want number", jsonType(v))
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		g.addf(path, "is not a finite number")
		return 0
	}
	if math.Abs(f) > MaxAmount {
		g.addf(path, "exceeds the maximum amount %g", MaxAmount)
		return 0
	}
	return f
}

func (g *gate) transactions(doc map[string]any) []Transaction {
	v, ok := doc["transactions"]
	if !ok {
		g.addf("transactions", "missing required field")
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		g.addf("transactions", "has type %s, want array", jsonType(v))
		return nil
	}

	txs := make([]Transaction, 0, len(items))
	for i, item := range items {
		prefix := fmt.Sprintf("transactions[%d]", i)
		m, ok := item.(map[string]any)
		if !ok {
			g.addf(prefix, "has type %s, want object", jsonType(item))
			continue
		}
		txs = append(txs, Transaction{
			Date:        g.str(m, prefix, "date"),
			Description: g.str(m, prefix, "description"),
			Debit:       g.num(m, prefix, "debit"),
			Credit:      g.num(m, prefix, "credit"),
			Balance:     g.num(m, prefix, "balance"),
		})
	}
	return txs
}

// numberValue accepts JSON numbers only: strings, booleans and null are rejected.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if errors.Is(err, strconv.ErrRange) {
			// Overflow comes back as ±Inf and is reported as non-finite.
			return f, true
		}
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		if _, ok := numberValue(v); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}
