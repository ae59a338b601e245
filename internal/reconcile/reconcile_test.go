package reconcile

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

func TestReconcile_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		rec  *statement.Record
		want statement.Summary
	}{
		{
			name: "single credit matches ending",
			rec: &statement.Record{
				BeginningBalance: 0.0,
				EndingBalance:    3500.0,
				Transactions:     []statement.Transaction{{Credit: 3500.0}},
			},
			want: statement.Summary{TotalCredits: 3500.0, TotalDebits: 0.0, CalculatedBalance: 3500.0, IsConsistent: true},
		},
		{
			name: "debit leaves mismatch against printed ending",
			rec: &statement.Record{
				BeginningBalance: 8313.30,
				EndingBalance:    5799.64,
				Transactions:     []statement.Transaction{{Debit: 132.30, Balance: 8181.00}},
			},
			want: statement.Summary{TotalCredits: 0.0, TotalDebits: 132.30, CalculatedBalance: 8181.00, IsConsistent: false},
		},
		{
			name: "empty statement",
			rec:  &statement.Record{Transactions: []statement.Transaction{}},
			want: statement.Summary{IsConsistent: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.rec))
		})
	}
}

func TestReconcile_ToleranceBoundary(t *testing.T) {
	inside := &statement.Record{BeginningBalance: 100, EndingBalance: 100.009999}
	assert.True(t, Compute(inside).IsConsistent)

	atTolerance := &statement.Record{BeginningBalance: 100, EndingBalance: 100.01}
	res := Compute(atTolerance)
	assert.False(t, res.IsConsistent)
	assert.True(t, res.Difference.Abs().Equal(decimal.RequireFromString("0.01")))
}

func TestReconcile_ConsistencyComputedBeforeRounding(t *testing.T) {
	// 100.004 rounds to 100.00 for display but is still 0.014 away from 99.99.
	rec := &statement.Record{
		BeginningBalance: 100,
		EndingBalance:    99.99,
		Transactions:     []statement.Transaction{{Credit: 0.004}},
	}
	sum := Reconcile(rec)
	assert.Equal(t, 100.0, sum.CalculatedBalance)
	assert.False(t, sum.IsConsistent)
}

func TestReconcile_Idempotent(t *testing.T) {
	rec := &statement.Record{
		BeginningBalance: 250.75,
		EndingBalance:    180.10,
		Transactions: []statement.Transaction{
			{Debit: 20.65}, {Debit: 50}, {Credit: 0.1},
		},
	}
	assert.Equal(t, Reconcile(rec), Reconcile(rec))
	assert.Equal(t, Enrich(rec), Enrich(rec))
}

func TestReconcile_NilRecord(t *testing.T) {
	assert.Equal(t, statement.Summary{IsConsistent: true}, Reconcile(nil))
	enriched := Enrich(nil)
	assert.NotNil(t, enriched.Transactions)
	assert.NotNil(t, enriched.Warnings)
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	rec := &statement.Record{
		AccountHolder:    "Jane",
		BeginningBalance: 10,
		EndingBalance:    15,
		Transactions:     []statement.Transaction{{Description: "refund", Credit: 5}},
		Warnings:         []string{"line 4 unreadable"},
	}
	before := rec.Clone()

	out := Enrich(rec)
	out.Transactions[0].Description = "changed"
	out.Warnings[0] = "changed"

	assert.Equal(t, before, *rec)
	assert.True(t, out.Summary.IsConsistent)
	assert.Equal(t, "Jane", out.AccountHolder)
}

func TestCompute_NonFiniteAmountsCountAsZero(t *testing.T) {
	rec := &statement.Record{
		BeginningBalance: math.NaN(),
		EndingBalance:    10,
		Transactions: []statement.Transaction{
			{Credit: 10},
			{Debit: math.Inf(1)},
		},
	}
	res := Compute(rec)
	assert.True(t, res.Beginning.IsZero())
	assert.True(t, res.TotalDebits.IsZero())
	assert.True(t, res.IsConsistent)
	assert.Equal(t, 2, res.TransactionCount)
}

func TestComputeRaw_OutOfRangeAmountsCountAsZero(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`{
		"beginning_balance": 1e400,
		"ending_balance": 25,
		"transactions": [{"credit": "1.7e308"}, {"credit": 1.7e308}, {"credit": 25}, {"debit": "-9e999"}]
	}`))
	dec.UseNumber()
	var doc map[string]any
	require.NoError(t, dec.Decode(&doc))

	res := ComputeRaw(doc)
	assert.True(t, res.Beginning.IsZero())
	assert.True(t, res.TotalCredits.Equal(decimal.NewFromInt(25)))
	assert.True(t, res.TotalDebits.IsZero())
	assert.True(t, res.IsConsistent)

	out, err := json.Marshal(res.Summary())
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_credits":25,"total_debits":0,"calculated_balance":25,"is_consistent":true}`, string(out))
}

func TestEnrich_LargeRecordEncodes(t *testing.T) {
	rec := &statement.Record{
		BeginningBalance: 1.7e308,
		Transactions:     []statement.Transaction{{Credit: 1.7e308}, {Credit: statement.MaxAmount}},
	}
	_, err := json.Marshal(Enrich(rec))
	require.NoError(t, err)
}

func TestComputeRaw_DefensiveCoercion(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"beginning_balance": "100.50",
		"ending_balance": 120.5,
		"transactions": [
			{"credit": 25, "debit": null},
			{"debit": "five dollars", "credit": "0"},
			{"debit": 5},
			{"description": "no amounts at all"},
			"not an object"
		]
	}`), &doc))

	res := ComputeRaw(doc)
	assert.True(t, res.Beginning.Equal(decimal.RequireFromString("100.50")))
	assert.True(t, res.TotalCredits.Equal(decimal.NewFromInt(25)))
	assert.True(t, res.TotalDebits.Equal(decimal.NewFromInt(5)))
	assert.True(t, res.CalculatedBalance.Equal(decimal.RequireFromString("120.5")))
	assert.True(t, res.IsConsistent)
	assert.Equal(t, 4, res.TransactionCount)
}

func TestComputeRaw_MissingEverything(t *testing.T) {
	res := ComputeRaw(map[string]any{})
	assert.True(t, res.CalculatedBalance.IsZero())
	assert.True(t, res.IsConsistent)
	assert.Equal(t, 0, res.TransactionCount)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "0"},
		{true, "0"},
		{"", "0"},
		{" 12.5 ", "12.5"},
		{"NaN", "0"},
		{json.Number("3.25"), "3.25"},
		{float32(1.5), "1.5"},
		{int64(-7), "-7"},
		{math.Inf(-1), "0"},
		{decimal.RequireFromString("9.99"), "9.99"},
	}
	for _, tt := range tests {
		got := coerce(tt.in)
		assert.Truef(t, got.Equal(decimal.RequireFromString(tt.want)), "coerce(%#v) = %s, want %s", tt.in, got, tt.want)
	}
}

func cents() *rapid.Generator[int64] {
	return rapid.Int64Range(0, 10_000_000_00)
}

func TestProperty_ZeroTransactionIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		begin := cents().Draw(t, "beginning")
		rec := &statement.Record{BeginningBalance: float64(begin) / 100}

		res := Compute(rec)
		if !res.CalculatedBalance.Equal(decimal.New(begin, -2)) {
			t.Fatalf("calculated %s, want %s", res.CalculatedBalance, decimal.New(begin, -2))
		}
		if !res.TotalCredits.IsZero() || !res.TotalDebits.IsZero() {
			t.Fatalf("expected zero totals, got credits=%s debits=%s", res.TotalCredits, res.TotalDebits)
		}
	})
}

func TestProperty_SummationInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		begin := cents().Draw(t, "beginning")
		n := rapid.IntRange(0, 40).Draw(t, "n")

		rec := &statement.Record{BeginningBalance: float64(begin) / 100}
		var credits, debits int64
		for i := 0; i < n; i++ {
			amount := cents().Draw(t, "amount")
			if rapid.Bool().Draw(t, "is_credit") {
				credits += amount
				rec.Transactions = append(rec.Transactions, statement.Transaction{Credit: float64(amount) / 100})
			} else {
				debits += amount
				rec.Transactions = append(rec.Transactions, statement.Transaction{Debit: float64(amount) / 100})
			}
		}
		rec.EndingBalance = float64(begin+credits-debits) / 100

		res := Compute(rec)
		want := decimal.New(begin+credits-debits, -2)
		if !res.CalculatedBalance.Equal(want) {
			t.Fatalf("calculated %s, want %s", res.CalculatedBalance, want)
		}
		if !res.CalculatedBalance.Equal(res.Beginning.Add(res.TotalCredits).Sub(res.TotalDebits)) {
			t.Fatalf("calculated balance does not equal beginning + credits - debits")
		}
		if !res.IsConsistent {
			t.Fatalf("exact ledger reported inconsistent: diff %s", res.Difference)
		}
	})
}

func TestProperty_Idempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec := &statement.Record{
			BeginningBalance: rapid.Float64Range(-1e6, 1e6).Draw(t, "beginning"),
			EndingBalance:    rapid.Float64Range(-1e6, 1e6).Draw(t, "ending"),
		}
		for i, n := 0, rapid.IntRange(0, 10).Draw(t, "n"); i < n; i++ {
			rec.Transactions = append(rec.Transactions, statement.Transaction{
				Debit:  rapid.Float64Range(0, 1e5).Draw(t, "debit"),
				Credit: rapid.Float64Range(0, 1e5).Draw(t, "credit"),
			})
		}
		if Reconcile(rec) != Reconcile(rec) {
			t.Fatalf("reconcile is not deterministic")
		}
	})
}
