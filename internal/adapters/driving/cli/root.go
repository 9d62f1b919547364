// Package cli provides the parcelsync command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
	"github.com/custodia-labs/parcelsync/internal/logger"
)

var version = "dev"

// Services injected by main.
var (
	sourceService    driving.SourceService
	syncOrchestrator driving.SyncOrchestrator
	changeQueue      driving.ChangeQueue
	mappingService   driving.MappingService
	historyService   driving.HistoryService
	settingsService  driving.SettingsService
	scheduler        driving.Scheduler
	connectorFactory driven.ConnectorFactory
	connectivity     driven.Connectivity
)

// Services bundles the ports the commands call.
type Services struct {
	Source       driving.SourceService
	Sync         driving.SyncOrchestrator
	Queue        driving.ChangeQueue
	Mapping      driving.MappingService
	History      driving.HistoryService
	Settings     driving.SettingsService
	Scheduler    driving.Scheduler
	Factory      driven.ConnectorFactory
	Connectivity driven.Connectivity
}

// Configure installs the services used by all commands.
func Configure(s Services) {
	sourceService = s.Source
	syncOrchestrator = s.Sync
	changeQueue = s.Queue
	mappingService = s.Mapping
	historyService = s.History
	settingsService = s.Settings
	scheduler = s.Scheduler
	connectorFactory = s.Factory
	connectivity = s.Connectivity
}

// Options are the global flags a Bootstrap receives.
type Options struct {
	// ConfigDir holds config.toml; empty means ~/.parcelsync.
	ConfigDir string

	// DataDir holds the database; empty means ~/.parcelsync/data.
	DataDir string

	// Ephemeral keeps all state in memory.
	Ephemeral bool
}

// Bootstrap builds the services for a run and returns a function that
// releases them.
type Bootstrap func(ctx context.Context, opts Options) (Services, func(), error)

var (
	bootstrap Bootstrap
	release   func()
)

// SetBootstrap installs the function that builds services before any
// command runs. Without one, the services passed to Configure are used.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

var rootCmd = &cobra.Command{
	Use:   "parcelsync",
	Short: "Keep delivery spreadsheets and couriers in step",
	Long: `parcelsync reads delivery rows from Google Sheets or CSV files,
works out which column holds what, and writes status changes back.

Changes made while offline are queued and replayed in order once the
source is reachable again.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if v, err := cmd.Flags().GetBool("verbose"); err == nil && v {
			logger.SetVerbose(true)
		}
		if bootstrap == nil || cmd == versionCmd {
			return nil
		}

		var opts Options
		opts.ConfigDir, _ = cmd.Flags().GetString("config-dir")
		opts.DataDir, _ = cmd.Flags().GetString("data-dir")
		opts.Ephemeral, _ = cmd.Flags().GetBool("ephemeral")

		services, cleanup, err := bootstrap(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("initialising: %w", err)
		}
		Configure(services)
		release = cleanup
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("config-dir", "", "configuration directory (default ~/.parcelsync)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default ~/.parcelsync/data)")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "keep sources, records and the queue in memory only")
}

// Execute runs the root command with the given build version.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	err := rootCmd.Execute()
	if release != nil {
		release()
		release = nil
	}
	return err
}
