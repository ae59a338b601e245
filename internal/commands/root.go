// Package commands implements the statement analyzer command line.
package commands

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/logger"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "statement-analyzer",
		Short: "Extract, reconcile and export bank statements",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCommand(),
		newReconcileCommand(),
		newValidateCommand(),
		newExportCommand(),
		newUploadCommand(),
		newSyncNotionCommand(),
		newMigrateCommand(),
	)

	return rootCmd
}

// loadRuntime loads configuration and a stderr logger, keeping stdout for command output.
func loadRuntime(cmd *cobra.Command) (context.Context, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: os.Stderr})
	return logger.WithContext(cmd.Context(), log), cfg, log, nil
}
