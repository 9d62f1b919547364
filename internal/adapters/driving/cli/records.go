package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Browse cached delivery records",
	Long:  `Read delivery records from the local cache. These commands never contact the source.`,
}

var recordsListCmd = &cobra.Command{
	Use:   "list <source-id>",
	Short: "List cached records of a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsList,
}

var recordsGroupsCmd = &cobra.Command{
	Use:   "groups <source-id>",
	Short: "Group cached records by customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsGroups,
}

var recordsHistoryCmd = &cobra.Command{
	Use:   "history <source-id>",
	Short: "Show confirmed status changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsHistory,
}

func init() {
	recordsListCmd.Flags().StringP("status", "s", "", "only show records with this status")
	recordsListCmd.Flags().IntP("limit", "n", 0, "maximum number of records to show (0 = all)")
	recordsHistoryCmd.Flags().String("record", "", "only show changes of this record ID")
	recordsHistoryCmd.Flags().IntP("limit", "n", 20, "maximum number of changes to show")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsGroupsCmd)
	recordsCmd.AddCommand(recordsHistoryCmd)
	rootCmd.AddCommand(recordsCmd)
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	statusFilter, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	var filter domain.Status
	if statusFilter != "" {
		st, ok := domain.MatchStatus(statusFilter)
		if !ok {
			return fmt.Errorf("unknown status %q", statusFilter)
		}
		filter = st
	}

	snap, err := syncOrchestrator.Records(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}

	p := newPalette(cmd.OutOrStdout())
	var rows [][]string
	total := 0
	for i := range snap.Records {
		r := &snap.Records[i]
		if filter != "" && r.Status != filter {
			continue
		}
		total++
		if limit > 0 && len(rows) >= limit {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Row),
			r.TrackingNumber,
			r.Name,
			r.Phone,
			r.Address,
			p.status(r.Status),
			r.StatusDate,
		})
	}

	if total == 0 {
		cmd.Printf("No records found for source: %s\n", args[0])
		return nil
	}

	cmd.Println(p.table([]string{"ROW", "TRACKING", "NAME", "PHONE", "ADDRESS", "STATUS", "UPDATED"}, rows))
	if len(rows) < total {
		cmd.Println(p.muted.Render(fmt.Sprintf("Showing %d of %d records.", len(rows), total)))
	} else {
		cmd.Println(p.muted.Render(fmt.Sprintf("%d records.", total)))
	}
	return nil
}

func runRecordsGroups(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	groups, err := syncOrchestrator.Groups(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to group records: %w", err)
	}
	if len(groups) == 0 {
		cmd.Printf("No records found for source: %s\n", args[0])
		return nil
	}

	p := newPalette(cmd.OutOrStdout())
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = []string{g.Key, strconv.Itoa(len(g.Records)), formatCounts(p, g.Counts)}
	}
	cmd.Println(p.table([]string{"CUSTOMER", "PARCELS", "STATUS"}, rows))
	return nil
}

// formatCounts renders per-status counts in canonical status order.
func formatCounts(p palette, counts map[domain.Status]int) string {
	var parts []string
	for _, st := range domain.AllStatuses {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", p.status(st), n))
		}
	}
	return strings.Join(parts, ", ")
}

func runRecordsHistory(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	recordID, _ := cmd.Flags().GetString("record")
	limit, _ := cmd.Flags().GetInt("limit")

	events, err := historyService.List(cmd.Context(), args[0], recordID, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(events) == 0 {
		cmd.Println("No status changes recorded.")
		return nil
	}

	p := newPalette(cmd.OutOrStdout())
	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = []string{
			e.AppliedAt.Local().Format(domain.StatusDateLayout),
			e.TrackingNumber,
			p.status(e.Status),
			string(e.UpdateType),
		}
	}
	cmd.Println(p.table([]string{"WHEN", "TRACKING", "STATUS", "UPDATE"}, rows))
	return nil
}
