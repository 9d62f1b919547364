package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Show and correct column mappings",
}

var mappingShowCmd = &cobra.Command{
	Use:   "show <source-id>",
	Short: "Show which column each field was read from",
	Args:  cobra.ExactArgs(1),
	RunE:  runMappingShow,
}

var mappingSetCmd = &cobra.Command{
	Use:   "set <source-id> <field> <column>",
	Short: "Assign a column to a field",
	Long: `Assign a column to a field and re-read the cached rows with the
corrected mapping. The column is a spreadsheet letter (A, B, ... AA) or
a 1-based number.

Fields: trackingNumber, name, phone, address, status, statusDate,
scanDate, assignedTo.`,
	Args: cobra.ExactArgs(3),
	RunE: runMappingSet,
}

func init() {
	mappingCmd.AddCommand(mappingShowCmd)
	mappingCmd.AddCommand(mappingSetCmd)
	rootCmd.AddCommand(mappingCmd)
}

func runMappingShow(cmd *cobra.Command, args []string) error {
	if mappingService == nil {
		return errors.New("mapping service not configured")
	}

	mapping, err := mappingService.Get(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no mapping for %s yet; run 'parcelsync sync %s' first", args[0], args[0])
		}
		return fmt.Errorf("failed to get mapping: %w", err)
	}

	p := newPalette(cmd.OutOrStdout())
	review := make(map[domain.Field]bool, len(mapping.NeedsReview))
	for _, f := range mapping.NeedsReview {
		review[f] = true
	}

	rows := make([][]string, 0, len(domain.AllFields))
	for _, f := range domain.AllFields {
		ref, ok := mapping.Column(f)
		if !ok {
			row := []string{string(f), "-", "", "", ""}
			if review[f] {
				row[4] = p.warning.Render("review")
			}
			rows = append(rows, row)
			continue
		}
		note := ""
		if review[f] {
			note = p.warning.Render("review")
		}
		rows = append(rows, []string{
			string(f),
			columnLetter(ref.Index),
			ref.Label,
			strconv.Itoa(mapping.Confidence[f]),
			strings.TrimSpace(string(mapping.Origins[f]) + " " + note),
		})
	}
	cmd.Println(p.table([]string{"FIELD", "COLUMN", "HEADER", "CONFIDENCE", "ORIGIN"}, rows))
	return nil
}

func runMappingSet(cmd *cobra.Command, args []string) error {
	if mappingService == nil {
		return errors.New("mapping service not configured")
	}

	field, ok := parseField(args[1])
	if !ok {
		return fmt.Errorf("unknown field %q", args[1])
	}
	index, err := parseColumn(args[2])
	if err != nil {
		return err
	}

	snap, err := mappingService.ApplyManualMapping(cmd.Context(), args[0], field, domain.ColumnRef{Index: index})
	if err != nil {
		return fmt.Errorf("failed to set mapping: %w", err)
	}

	cmd.Printf("Mapped %s to column %s.\n", field, columnLetter(index))
	printSnapshotSummary(cmd, newPalette(cmd.OutOrStdout()), snap)
	return nil
}

// parseField matches a field name case-insensitively.
func parseField(s string) (domain.Field, bool) {
	for _, f := range domain.AllFields {
		if strings.EqualFold(string(f), s) {
			return f, true
		}
	}
	return "", false
}

// parseColumn converts a column letter or 1-based number to a zero-based index.
func parseColumn(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("column number must be at least 1, got %d", n)
		}
		return n - 1, nil
	}
	if s == "" || len(s) > 3 {
		return 0, fmt.Errorf("invalid column %q", s)
	}
	index := 0
	for _, c := range strings.ToUpper(s) {
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid column %q", s)
		}
		index = index*26 + int(c-'A'+1)
	}
	return index - 1, nil
}

// columnLetter converts a zero-based index to a spreadsheet column letter.
func columnLetter(index int) string {
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}
