package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-analyzer/internal/export"
	"github.com/dvloznov/statement-analyzer/internal/reconcile"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

// errInvalid signals a failed check whose details were already printed.
var errInvalid = errors.New("document failed validation")

func newReconcileCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile FILE.json",
		Short: "Reconcile an extraction JSON document without validating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			return runReconcile(cmd.OutOrStdout(), data, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the display summary as JSON")

	return cmd
}

func runReconcile(w io.Writer, data []byte, asJSON bool) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	res := reconcile.ComputeRaw(doc)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Summary())
	}
	printResult(w, res)
	return nil
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE.json",
		Short: "Check an extraction JSON document against the input contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			return runValidate(cmd.OutOrStdout(), data)
		},
	}
}

func runValidate(w io.Writer, data []byte) error {
	rec, err := statement.Decode(data)
	var invalid *statement.InvalidExtractionError
	if errors.As(err, &invalid) {
		fmt.Fprintf(w, "invalid: %d violation(s)\n", len(invalid.Violations))
		for _, v := range invalid.Violations {
			fmt.Fprintf(w, "  - %s\n", v)
		}
		return errInvalid
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "valid: %d transaction(s), %d warning(s)\n", len(rec.Transactions), len(rec.Warnings))
	return nil
}

// exportOptions are the flags shared by export and analyze --export.
type exportOptions struct {
	format string
	out    string
	search string
	typ    string
}

func (o *exportOptions) register(cmd *cobra.Command, formatFlag string) {
	cmd.Flags().StringVar(&o.format, formatFlag, o.format, "export format: csv or xlsx")
	cmd.Flags().StringVar(&o.out, "out", "", "output path (default statement_export.<format>)")
	cmd.Flags().StringVar(&o.search, "search", "", "keep transactions whose description contains this text")
	cmd.Flags().StringVar(&o.typ, "type", "all", "transaction type: all, debits or credits")
}

func (o *exportOptions) filter() (export.Filter, error) {
	typ, err := export.ParseFilterType(o.typ)
	if err != nil {
		return export.Filter{}, err
	}
	return export.Filter{Search: o.search, Type: typ}, nil
}

// write exports the filtered view of txs and returns the path and row count.
func (o *exportOptions) write(txs []statement.Transaction) (string, int, error) {
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return "", 0, err
	}
	f, err := o.filter()
	if err != nil {
		return "", 0, err
	}

	path := o.out
	if path == "" {
		path = format.Filename()
	}

	rows := f.Apply(txs)

	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.Write(file, format, rows); err != nil {
		file.Close()
		return "", 0, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", 0, fmt.Errorf("closing %s: %w", path, err)
	}
	return path, len(rows), nil
}

func newExportCommand() *cobra.Command {
	opts := &exportOptions{format: "csv"}

	cmd := &cobra.Command{
		Use:   "export FILE.json",
		Short: "Export the transactions of a statement JSON document to CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			rec, err := statement.Decode(data)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}

			path, n, err := opts.write(rec.Transactions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d of %d transaction(s) to %s\n", n, len(rec.Transactions), path)
			return nil
		},
	}

	opts.register(cmd, "format")

	return cmd
}
