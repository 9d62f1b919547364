package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Change delivery statuses",
}

var statusSetCmd = &cobra.Command{
	Use:   "set <source-id> <record> <status>",
	Short: "Set the status of a record",
	Long: `Set the delivery status of a record, identified by record ID or
tracking number. The status may be canonical (pending, in_progress,
delivered, failed, returned) or a Hebrew or English keyword such as
"נמסר" or "out for delivery".

The change is applied locally at once and queued. It is written to the
source immediately when online, otherwise on the next drain.

With --batch every record of the same customer is updated.`,
	Args: cobra.ExactArgs(3),
	RunE: runStatusSet,
}

func init() {
	statusSetCmd.Flags().BoolP("batch", "b", false, "update every record of the same customer")
	statusCmd.AddCommand(statusSetCmd)
	rootCmd.AddCommand(statusCmd)
}

func runStatusSet(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	status, ok := domain.MatchStatus(args[2])
	if !ok {
		return fmt.Errorf("unknown status %q", args[2])
	}
	batch, _ := cmd.Flags().GetBool("batch")
	updateType := domain.UpdateSingle
	if batch {
		updateType = domain.UpdateBatch
	}

	refs, err := syncOrchestrator.SetStatus(cmd.Context(), driving.StatusRequest{
		SourceID:       args[0],
		RecordID:       args[1],
		TrackingNumber: args[1],
		Status:         status,
		UpdateType:     updateType,
	})
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	p := newPalette(cmd.OutOrStdout())
	cmd.Printf("Marked %d record(s) %s:\n", len(refs), p.status(status))
	for _, ref := range refs {
		cmd.Printf("  row %d  %s\n", ref.Row, ref.TrackingNumber)
	}

	if connectivity != nil && !connectivity.Online() {
		cmd.Println(p.warning.Render("Offline: the change is queued and will be written later."))
	}
	if changeQueue != nil {
		if n, err := changeQueue.PendingCount(cmd.Context()); err == nil && n > 0 {
			cmd.Println(p.muted.Render(fmt.Sprintf("%d change(s) waiting to be written to the source.", n)))
		}
	}
	return nil
}
