package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and replay queued status changes",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List changes waiting to be written",
	RunE:  runQueueList,
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Write queued changes to their sources",
	RunE:  runQueueDrain,
}

var queueDiscardCmd = &cobra.Command{
	Use:   "discard <change-id>",
	Short: "Drop a queued change without writing it",
	Long: `Drop a queued change. Use this for changes that can never be applied,
for example when the target row was deleted from the sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueueDiscard,
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueDrainCmd)
	queueCmd.AddCommand(queueDiscardCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	if changeQueue == nil {
		return errors.New("change queue not configured")
	}

	changes, err := changeQueue.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}
	p := newPalette(cmd.OutOrStdout())
	if connectivity != nil && !connectivity.Online() {
		cmd.Println(p.warning.Render("Offline: changes will be written when connectivity returns."))
	}
	if len(changes) == 0 {
		cmd.Println("No pending changes.")
		return nil
	}

	rows := make([][]string, len(changes))
	for i, c := range changes {
		rows[i] = []string{
			c.ID,
			c.SourceID,
			c.TrackingNumber,
			p.status(c.NewStatus),
			string(c.UpdateType),
			c.EnqueuedAt.Local().Format(domain.StatusDateLayout),
			strconv.Itoa(c.RetryCount),
			truncate(c.LastError, 40),
		}
	}
	cmd.Println(p.table([]string{"ID", "SOURCE", "TRACKING", "STATUS", "UPDATE", "QUEUED", "RETRIES", "LAST ERROR"}, rows))
	return nil
}

func runQueueDrain(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	res, err := syncOrchestrator.Drain(cmd.Context())
	switch {
	case errors.Is(err, domain.ErrOffline):
		cmd.Println("Offline; changes stay queued.")
		return nil
	case errors.Is(err, domain.ErrDrainInProgress):
		cmd.Println("Another drain is already running.")
		return nil
	case err != nil:
		return fmt.Errorf("drain failed: %w", err)
	}

	cmd.Printf("Written: %d, failed: %d, deferred: %d\n", res.Succeeded, res.Failed, res.Deferred)
	if res.Failed > 0 {
		cmd.Println("Failed changes stay queued; see 'parcelsync queue list'.")
	}
	return nil
}

func runQueueDiscard(cmd *cobra.Command, args []string) error {
	if changeQueue == nil {
		return errors.New("change queue not configured")
	}

	if err := changeQueue.Discard(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no queued change with ID %s", args[0])
		}
		return fmt.Errorf("failed to discard change: %w", err)
	}
	cmd.Printf("Discarded change %s\n", args[0])
	return nil
}

// truncate shortens s to maxLen runes, marking the cut with an ellipsis.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
