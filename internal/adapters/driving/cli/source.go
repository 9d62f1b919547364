package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage delivery sources",
	Long:  `Add, list and remove the spreadsheets parcelsync reads delivery rows from.`,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add <type> <name>",
	Short: "Add a source",
	Long: `Add a Google Sheet or CSV file as a delivery source.

Examples:
  # A Google Sheet read with a service account
  parcelsync source add gsheet "Tel Aviv route" \
    --spreadsheet 1AbC... --credentials ~/sa.json

  # A CSV export in Windows Hebrew encoding
  parcelsync source add csv "Warehouse export" \
    --path ./export.csv --encoding windows-1255`,
	Args: cobra.ExactArgs(2),
	RunE: runSourceAdd,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourceList,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove <source-id>",
	Short: "Remove a source and its cached records",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

// sourceConfigFlags maps add flags to connector config keys.
var sourceConfigFlags = map[string]string{
	"spreadsheet": domain.ConfigSpreadsheetID,
	"range":       domain.ConfigRange,
	"credentials": domain.ConfigCredentials,
	"token":       domain.ConfigToken,
	"api-key":     domain.ConfigAPIKey,
	"path":        domain.ConfigPath,
	"encoding":    domain.ConfigEncoding,
	"delimiter":   domain.ConfigDelimiter,
}

func init() {
	sourceAddCmd.Flags().String("id", "", "source ID (generated when empty)")
	sourceAddCmd.Flags().String("spreadsheet", "", "Google spreadsheet ID")
	sourceAddCmd.Flags().String("range", "", "A1 range, e.g. 'Deliveries!A:H' (first sheet when empty)")
	sourceAddCmd.Flags().String("credentials", "", "service account JSON file")
	sourceAddCmd.Flags().String("token", "", "OAuth token JSON file")
	sourceAddCmd.Flags().String("api-key", "", "API key (read-only access)")
	sourceAddCmd.Flags().String("path", "", "CSV file path")
	sourceAddCmd.Flags().String("encoding", "", "CSV encoding (utf-8, utf-16, utf-16le, utf-16be, windows-1255)")
	sourceAddCmd.Flags().String("delimiter", "", "CSV field delimiter (default ',')")

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	rootCmd.AddCommand(sourceCmd)
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	sourceType := strings.ToLower(args[0])
	if connectorFactory != nil {
		supported := connectorFactory.SupportedTypes()
		if !containsType(supported, sourceType) {
			return fmt.Errorf("unsupported source type %q (supported: %s)", sourceType, strings.Join(supported, ", "))
		}
	}

	config := make(map[string]string)
	for flag, key := range sourceConfigFlags {
		v, err := cmd.Flags().GetString(flag)
		if err != nil {
			return err
		}
		if v != "" {
			config[key] = v
		}
	}

	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = uuid.NewString()
	}

	source := domain.Source{
		ID:     id,
		Type:   sourceType,
		Name:   args[1],
		Config: config,
	}
	if err := sourceService.Add(cmd.Context(), source); err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	cmd.Printf("Added source %s (%s)\n", source.ID, source.DisplayName())
	cmd.Printf("Run 'parcelsync sync %s' to fetch its records.\n", source.ID)
	return nil
}

func containsType(types []string, t string) bool {
	for _, s := range types {
		if s == t {
			return true
		}
	}
	return false
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	sources, err := sourceService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		cmd.Println("No sources configured. Add one with 'parcelsync source add'.")
		return nil
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	p := newPalette(cmd.OutOrStdout())
	rows := make([][]string, len(sources))
	for i, src := range sources {
		rows[i] = []string{src.ID, src.Name, src.Type, sourceLocation(src)}
	}
	cmd.Println(p.table([]string{"ID", "NAME", "TYPE", "LOCATION"}, rows))
	return nil
}

// sourceLocation describes where a source's rows live.
func sourceLocation(src domain.Source) string {
	switch src.Type {
	case domain.SourceTypeGoogleSheet:
		loc := src.Config[domain.ConfigSpreadsheetID]
		if r := src.Config[domain.ConfigRange]; r != "" {
			loc += " " + r
		}
		return loc
	case domain.SourceTypeCSV:
		return src.Config[domain.ConfigPath]
	default:
		return ""
	}
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	if err := sourceService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}

	cmd.Printf("Removed source %s\n", args[0])
	if changeQueue != nil {
		changes, err := changeQueue.List(cmd.Context())
		if err == nil {
			n := 0
			for _, c := range changes {
				if c.SourceID == args[0] {
					n++
				}
			}
			if n > 0 {
				cmd.Printf("%d queued change(s) still target it; see 'parcelsync queue list'.\n", n)
			}
		}
	}
	return nil
}
