package commands

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

const validDoc = `{
  "account_holder": "Jane Doe",
  "account_number": "****1234",
  "period_start": "01/01/2024",
  "period_end": "01/31/2024",
  "beginning_balance": 1000,
  "ending_balance": 1250,
  "currency_symbol": "£",
  "transactions": [
    {"date": "01/03/2024", "description": "Coffee Shop", "debit": 50, "credit": 0, "balance": 950},
    {"date": "01/05/2024", "description": "Salary", "debit": 0, "credit": 500, "balance": 1450},
    {"date": "01/09/2024", "description": "Rent", "debit": 200, "credit": 0, "balance": 0}
  ],
  "warnings": ["Line 7 skipped: unreadable amount"],
  "summary": {"total_credits": 500, "total_debits": 250, "calculated_balance": 1250, "is_consistent": true}
}`

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1250.00", money("$", 1250))
	assert.Equal(t, "-£3.50", money("£", -3.5))
	assert.Equal(t, "$0.01", money("$", 0.005))
	assert.Equal(t, "", amountCell("$", 0))
}

func TestPrintDashboard(t *testing.T) {
	rec, err := statement.Decode([]byte(validDoc))
	require.NoError(t, err)

	var buf bytes.Buffer
	printDashboard(&buf, reconcile.Enrich(rec))
	out := buf.String()
	assert.Contains(t, out, "Beginning Balance:  £1000.00")
	assert.Contains(t, out, "Total Credits:      £500.00")
	assert.Contains(t, out, "Total Debits:       £250.00")
	assert.Contains(t, out, "Ending Balance:     £1250.00")
	assert.Contains(t, out, "Verification: balances reconcile")
	assert.Contains(t, out, "Line 7 skipped")

	rec.EndingBalance = 1300
	buf.Reset()
	printDashboard(&buf, reconcile.Enrich(rec))
	assert.Contains(t, buf.String(), "Verification Mismatch: calculated ending balance £1250.00 does not match statement ending balance £1300.00")
}

func TestRenderAnalysis_FiltersTable(t *testing.T) {
	rec, err := statement.Decode([]byte(validDoc))
	require.NoError(t, err)
	res := &pipeline.Result{Statement: reconcile.Enrich(rec), StatementID: "stmt-1"}

	var buf bytes.Buffer
	require.NoError(t, renderAnalysis(&buf, res, false, &exportOptions{typ: "credits"}))
	out := buf.String()
	assert.Contains(t, out, "Statement ID:       stmt-1")
	assert.Contains(t, out, "Transactions (1 of 3):")
	assert.Contains(t, out, "Salary")
	assert.NotContains(t, out, "Coffee Shop")

	buf.Reset()
	require.NoError(t, renderAnalysis(&buf, res, true, &exportOptions{}))
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"is_consistent": true`)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", writeFile(t, "ok.json", validDoc))
	require.NoError(t, err)
	assert.Contains(t, out, "valid: 3 transaction(s), 1 warning(s)")

	out, err = execute(t, "validate", writeFile(t, "bad.json", `{"account_holder": 1, "transactions": [{"date": "x"}]}`))
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "invalid:")
	assert.Contains(t, out, "account_holder")
	assert.Contains(t, out, "transactions[0].debit")
}

func TestReconcileCommand_Lenient(t *testing.T) {
	doc := `{"beginning_balance": "1000.00", "ending_balance": 1250,
	  "transactions": [{"debit": 50}, {"credit": "500"}, {"debit": null}, "junk", {"debit": 200}]}`

	out, err := execute(t, "reconcile", writeFile(t, "raw.json", doc))
	require.NoError(t, err)
	assert.Contains(t, out, "Transactions:       4")
	assert.Contains(t, out, "Verification: balances reconcile")

	out, err = execute(t, "reconcile", "--json", writeFile(t, "raw.json", `{"beginning_balance": 10, "ending_balance": 0, "transactions": []}`))
	require.NoError(t, err)
	assert.Contains(t, out, `"is_consistent": false`)
	assert.Contains(t, out, `"calculated_balance": 10`)

	out, err = execute(t, "reconcile", "--json", writeFile(t, "huge.json", `{"beginning_balance": 1e400, "ending_balance": 5,
	  "transactions": [{"credit": "1.7e308"}, {"credit": 5}]}`))
	require.NoError(t, err)
	assert.Contains(t, out, `"calculated_balance": 5`)
	assert.Contains(t, out, `"is_consistent": true`)
}

func TestExportCommand(t *testing.T) {
	in := writeFile(t, "statement.json", validDoc)
	outPath := filepath.Join(t.TempDir(), "debits.csv")

	out, err := execute(t, "export", in, "--out", outPath, "--type", "debits")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 of 3 transaction(s)")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows[1:] {
		assert.NotEqual(t, "0.0", row[2], "every exported row is a debit")
	}

	_, err = execute(t, "export", in, "--format", "pdf", "--out", outPath)
	assert.Error(t, err)

	_, err = execute(t, "export", writeFile(t, "bad.json", `[]`), "--out", outPath)
	assert.ErrorIs(t, err, statement.ErrInvalidExtraction)
}

func TestAnalyzeCommand_RejectsBeforeLoadingConfig(t *testing.T) {
	_, err := execute(t, "analyze", "notes.txt")
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedFile)

	_, err = execute(t, "analyze", "jan.pdf", "--type", "refunds")
	assert.Error(t, err)
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"analyze", "reconcile", "validate", "export", "upload", "sync-notion", "migrate"}, names)
}
