package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure sync intervals, connectivity checks and other options.

Settings live in ~/.parcelsync/config.toml and can be overridden with
PARCELSYNC_* environment variables, e.g. PARCELSYNC_SYNC_INTERVAL=2m.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSyncIntervalCmd = &cobra.Command{
	Use:   "sync-interval <duration>",
	Short: "Set how often the daemon re-fetches sources",
	Long: `Set the periodic re-sync interval, e.g. 5m or 90s. Use 0 to disable
periodic re-sync.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSyncInterval,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSyncIntervalCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	p := newPalette(cmd.OutOrStdout())
	cmd.Println(p.title.Render("Current Settings"))
	cmd.Println()

	cmd.Println(p.header.Render("[Sync]"))
	cmd.Printf("  Interval: %s\n", durationOrOff(settings.Sync.Interval.String()))
	cmd.Printf("  Drain interval: %s\n", durationOrOff(settings.Sync.DrainInterval.String()))
	cmd.Printf("  Remote timeout: %s\n", settings.Sync.RemoteTimeout)
	cmd.Println()

	cmd.Println(p.header.Render("[Connectivity]"))
	if settings.Connectivity.ProbeURL == "" {
		cmd.Println("  Probe: disabled (always online)")
	} else {
		cmd.Printf("  Probe URL: %s\n", settings.Connectivity.ProbeURL)
		cmd.Printf("  Probe interval: %s\n", settings.Connectivity.ProbeInterval)
	}
	cmd.Println()

	cmd.Println(p.header.Render("[Classifier]"))
	cmd.Printf("  Sample size: %s\n", intOrDefault(settings.Classifier.SampleSize))
	cmd.Printf("  Min assign score: %s\n", intOrDefault(settings.Classifier.MinAssignScore))
	cmd.Printf("  Review confidence: %s\n", intOrDefault(settings.Classifier.ReviewConfidence))
	cmd.Println()

	cmd.Println(p.header.Render("[Normaliser]"))
	cmd.Printf("  Country code: +%s\n", settings.Normaliser.CountryCode)
	if len(settings.Normaliser.KnownLocations) > 0 {
		cmd.Printf("  Known locations: %s\n", strings.Join(settings.Normaliser.KnownLocations, ", "))
	} else {
		cmd.Println("  Known locations: (built-in)")
	}
	cmd.Println()

	cmd.Println(p.header.Render("[Logging]"))
	if settings.Logging.File == "" {
		cmd.Println("  File: (none)")
	} else {
		cmd.Printf("  File: %s\n", settings.Logging.File)
		cmd.Printf("  Rotate at: %d MB, keep %d\n", settings.Logging.MaxSizeMB, settings.Logging.MaxBackups)
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Println()
		cmd.Println(p.warning.Render(fmt.Sprintf("Warning: %v", err)))
	}
	return nil
}

func durationOrOff(d string) string {
	if d == "0s" || d == "0" {
		return "off"
	}
	return d
}

func intOrDefault(n int) string {
	if n == 0 {
		return "default"
	}
	return fmt.Sprintf("%d", n)
}

func runSettingsSyncInterval(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.SetSyncInterval(args[0]); err != nil {
		return fmt.Errorf("failed to set sync interval: %w", err)
	}
	cmd.Printf("Sync interval set to %s\n", durationOrOff(args[0]))
	return nil
}
