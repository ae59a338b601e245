// Package notionsync pushes persisted statements to a Notion transactions database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100
)

// SyncResult counts what a sync did, or would do in dry-run mode.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// SyncStatement mirrors one statement's transactions into a Notion database.
// Pages are matched on the Transaction ID property, so repeated runs update
// rather than duplicate. Pages of the statement whose transaction no longer
// exists are archived. Individual page failures are logged and counted.
func SyncStatement(ctx context.Context, notionClient NotionService, notionDBID string, ps *statement.PersistedStatement, dryRun bool) (SyncResult, error) {
	var res SyncResult
	if ps == nil || ps.ID == "" {
		return res, fmt.Errorf("SyncStatement: statement is required")
	}
	if notionDBID == "" {
		return res, fmt.Errorf("SyncStatement: NOTION_DATABASE_ID is not set")
	}

	log := logger.FromContext(ctx).With().Str("statement_id", ps.ID).Bool("dry_run", dryRun).Logger()
	log.Info().Int("transaction_count", len(ps.Transactions)).Msg("Starting statement sync to Notion")

	pages, err := queryStatementPages(ctx, notionClient, notionDBID, ps.ID)
	if err != nil {
		return res, fmt.Errorf("SyncStatement: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	valid := make(map[string]bool, len(ps.Transactions))
	for _, tx := range ps.Transactions {
		valid[tx.ID] = true
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID != "" && valid[txID] {
			if _, dup := existing[txID]; !dup {
				existing[txID] = string(page.ID)
				continue
			}
		}

		// Stale, untagged or duplicate page.
		if dryRun {
			log.Info().Str("transaction_id", txID).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
			res.Deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
			res.Failed++
			continue
		}
		res.Deleted++
	}

	for i := 0; i < len(ps.Transactions); i += BatchSize {
		end := min(i+BatchSize, len(ps.Transactions))
		log.Debug().Int("batch_start", i).Int("batch_end", end).Msg("Processing batch")

		for _, tx := range ps.Transactions[i:end] {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("SyncStatement: %w", err)
			}

			pageID, ok := existing[tx.ID]
			if dryRun {
				if ok {
					log.Info().Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
					res.Updated++
				} else {
					log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create Notion page")
					res.Created++
				}
				continue
			}

			props := TransactionToNotionProperties(ps, tx)
			if ok {
				if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
					log.Warn().Err(err).Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Failed to update Notion page")
					res.Failed++
					continue
				}
				res.Updated++
				continue
			}

			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
				res.Failed++
				continue
			}
			log.Debug().Str("transaction_id", tx.ID).Str("page_id", string(page.ID)).Msg("Created Notion page")
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("Statement sync completed")
	return res, nil
}

// queryStatementPages returns every page tagged with statementID, following pagination.
func queryStatementPages(ctx context.Context, notionClient NotionService, databaseID, statementID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: notionapi.PropertyFilter{
				Property: PropStatementID,
				RichText: &notionapi.TextFilterCondition{Equals: statementID},
			},
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryStatementPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
