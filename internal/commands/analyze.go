package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-analyzer/internal/app"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

func newAnalyzeCommand() *cobra.Command {
	var asJSON bool
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Extract and reconcile a statement PDF or image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := pipeline.CheckFilename(path); err != nil {
				return err
			}
			if _, err := opts.filter(); err != nil {
				return err
			}

			ctx, cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			services, err := app.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer services.Close()

			analyzer, err := services.NewAnalyzer(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			res, err := analyzer.Analyze(ctx, pipeline.Upload{
				Filename:    filepath.Base(path),
				ContentType: mime.TypeByExtension(filepath.Ext(path)),
				Body:        f,
			})
			if err != nil {
				return fmt.Errorf("analysis failed (%s): %w", statement.ErrorKind(err), err)
			}

			out := cmd.OutOrStdout()
			if err := renderAnalysis(out, res, asJSON, opts); err != nil {
				return err
			}

			if opts.format != "" {
				written, n, err := opts.write(res.Statement.Transactions)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transaction(s) to %s\n", n, written)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the enriched statement as JSON")
	opts.register(cmd, "export")

	return cmd
}

// renderAnalysis prints res as JSON or as the dashboard plus the filtered transaction table.
func renderAnalysis(w io.Writer, res *pipeline.Result, asJSON bool, opts *exportOptions) error {
	es := res.Statement
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(es)
	}

	printDashboard(w, es)
	if res.StatementID != "" {
		fmt.Fprintf(w, "\nStatement ID:       %s\n", res.StatementID)
	}
	if res.SourceURI != "" {
		fmt.Fprintf(w, "Archived to:        %s\n", res.SourceURI)
	}

	f, err := opts.filter()
	if err != nil {
		return err
	}
	printTransactions(w, es.CurrencySymbol, f.Apply(es.Transactions), len(es.Transactions))
	return nil
}
