package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync [source-id]",
	Short: "Fetch delivery records from sources",
	Long: `Fetches rows from configured sources, works out the column mapping
and refreshes the local cache. Queued status changes are replayed first.

If a source ID is provided, only that source is synchronised.
Otherwise, all sources are synchronised. When a source cannot be
reached the cached records are kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}
	ctx := cmd.Context()
	p := newPalette(cmd.OutOrStdout())

	if len(args) > 0 {
		sourceID := args[0]
		cmd.Printf("Synchronising source: %s...\n", sourceID)

		snap, err := syncOrchestrator.Sync(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printSnapshotSummary(cmd, p, snap)
		return nil
	}

	cmd.Println("Synchronising all sources...")
	results := syncOrchestrator.SyncAll(ctx)
	if len(results) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	failed := 0
	for _, id := range ids {
		if err := results[id]; err != nil {
			failed++
			cmd.Printf("  %s %s: %v\n", p.failure.Render("✗"), id, err)
			continue
		}
		cmd.Printf("  %s %s\n", p.success.Render("✓"), id)
	}

	if failed > 0 {
		return fmt.Errorf("sync failed for %d of %d sources", failed, len(ids))
	}
	cmd.Println("All sources synchronised successfully.")
	return nil
}

func printSnapshotSummary(cmd *cobra.Command, p palette, snap *domain.Snapshot) {
	if snap.FromCache {
		cmd.Println(p.warning.Render("Source unreachable, showing cached records."))
	}
	cmd.Printf("%d records", len(snap.Records))
	if !snap.SyncedAt.IsZero() {
		cmd.Printf(" (synced %s)", snap.SyncedAt.Local().Format(domain.StatusDateLayout))
	}
	cmd.Println()

	if snap.Mapping != nil && len(snap.Mapping.NeedsReview) > 0 {
		fields := make([]string, len(snap.Mapping.NeedsReview))
		for i, f := range snap.Mapping.NeedsReview {
			fields[i] = string(f)
		}
		cmd.Println(p.warning.Render(fmt.Sprintf(
			"Column mapping needs review for: %s (see 'parcelsync mapping show %s')",
			strings.Join(fields, ", "), snap.SourceID)))
	}
}
