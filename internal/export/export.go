package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// SheetName is the only worksheet in an exported workbook.
const SheetName = "Transactions"

// Columns is the header row shared by both export formats.
var Columns = []string{"date", "description", "debit", "credit", "balance"}

// Format is a download format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" (also "excel"). Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv or xlsx)", s)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename returns the download file name for f.
func (f Format) Filename() string {
	return "statement_export." + string(f)
}

// Write renders txs in format f.
func Write(w io.Writer, f Format, txs []statement.Transaction) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, txs)
	case FormatCSV:
		return WriteCSV(w, txs)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// WriteCSV writes txs as UTF-8 comma-separated text with a header row.
func WriteCSV(w io.Writer, txs []statement.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, tx := range txs {
		row := []string{
			tx.Date,
			tx.Description,
			formatAmount(tx.Debit),
			formatAmount(tx.Credit),
			formatAmount(tx.Balance),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes txs as a single-sheet workbook with numeric amount cells.
func WriteXLSX(w io.Writer, txs []statement.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("opening stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, tx := range txs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		row := []interface{}{tx.Date, tx.Description, tx.Debit, tx.Credit, tx.Balance}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// formatAmount renders floats the way spreadsheet exports usually show them:
// shortest form, always with a decimal point (3500 -> "3500.0").
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eENI") {
		s += ".0"
	}
	return s
}
