package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-analyzer/internal/app"
	"github.com/dvloznov/statement-analyzer/internal/archive"
	"github.com/dvloznov/statement-analyzer/internal/infra"
	"github.com/dvloznov/statement-analyzer/internal/notionsync"
)

func newUploadCommand() *cobra.Command {
	var filePath, objectName, bucket string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Archive a statement file to Google Cloud Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if bucket == "" {
				bucket = cfg.GCSBucket
			}
			if bucket == "" {
				return fmt.Errorf("no bucket: pass --bucket or set GCS_BUCKET")
			}
			if objectName == "" {
				objectName = filepath.Base(filePath)
			}

			a, err := archive.NewGCSArchiver(ctx, bucket)
			if err != nil {
				return err
			}
			defer a.Close()

			log.Info().
				Str("bucket", bucket).
				Str("object", objectName).
				Str("file", filePath).
				Msg("Uploading file to GCS")

			uri, err := a.Archive(ctx, filePath, objectName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s\n", filePath, uri)
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "path to the local statement file (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&objectName, "object", "", "file name used in the object path (defaults to the file's base name)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "GCS bucket (defaults to GCS_BUCKET)")

	return cmd
}

func newSyncNotionCommand() *cobra.Command {
	var statementID, token, databaseID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync-notion",
		Short: "Push the transactions of a persisted statement to a Notion database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if token == "" {
				token = cfg.NotionToken
			}
			if databaseID == "" {
				databaseID = cfg.NotionDatabaseID
			}
			if databaseID == "" {
				return fmt.Errorf("no database: pass --notion-db-id or set NOTION_DATABASE_ID")
			}

			// Keep the CLI from hanging on a slow API.
			ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()

			services, err := app.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer services.Close()
			if services.Repo == nil {
				return fmt.Errorf("statement storage is disabled (STORAGE_BACKEND=none)")
			}

			ps, err := services.Repo.GetStatement(ctx, statementID)
			if err != nil {
				return err
			}

			notionClient, err := notionsync.NewNotionClient(token)
			if err != nil {
				return err
			}

			log.Info().
				Str("statement_id", statementID).
				Int("transactions", len(ps.Transactions)).
				Bool("dry_run", dryRun).
				Msg("Starting Notion sync")

			res, err := notionsync.SyncStatement(ctx, notionClient, databaseID, ps, dryRun)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sync completed: %d created, %d updated, %d archived, %d failed\n",
				res.Created, res.Updated, res.Deleted, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d page operation(s) failed", res.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statementID, "statement-id", "", "persisted statement ID (required)")
	_ = cmd.MarkFlagRequired("statement-id")
	cmd.Flags().StringVar(&token, "notion-token", "", "Notion API token (defaults to NOTION_TOKEN)")
	cmd.Flags().StringVar(&databaseID, "notion-db-id", "", "Notion database ID (defaults to NOTION_DATABASE_ID)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without writing to Notion")

	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables of the configured storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			services, err := app.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer services.Close()

			if services.Repo == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Storage is disabled; nothing to migrate.")
				return nil
			}
			if err := infra.EnsureSchema(ctx, services.Repo); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready for the %s backend.\n", cfg.StorageBackend)
			return nil
		},
	}
}
