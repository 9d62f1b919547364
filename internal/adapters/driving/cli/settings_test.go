package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

func TestSettingsCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range settingsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "show")
	assert.Contains(t, names, "sync-interval")
}

func TestSettingsShowCmd(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		withServices(t, Services{Settings: &mockSettingsService{settings: &settings}})

		out, err := executeCommand(t, "settings")

		require.NoError(t, err)
		assert.Contains(t, out, "Current Settings")
		assert.Contains(t, out, "Interval: 5m0s")
		assert.Contains(t, out, "Drain interval: 1m0s")
		assert.Contains(t, out, "Probe URL: https://www.google.com/generate_204")
		assert.Contains(t, out, "Sample size: default")
		assert.Contains(t, out, "Country code: +972")
		assert.Contains(t, out, "Known locations: (built-in)")
		assert.Contains(t, out, "File: (none)")
		assert.NotContains(t, out, "Warning")
	})

	t.Run("custom values and validation warning", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Sync.Interval = 0
		settings.Connectivity.ProbeURL = ""
		settings.Classifier.SampleSize = 25
		settings.Normaliser.KnownLocations = []string{"חיפה", "Eilat"}
		settings.Logging.File = "/var/log/parcelsync.log"
		withServices(t, Services{Settings: &mockSettingsService{
			settings:    &settings,
			validateErr: errors.New("remote timeout too short"),
		}})

		out, err := executeCommand(t, "settings", "show")

		require.NoError(t, err)
		assert.Contains(t, out, "Interval: off")
		assert.Contains(t, out, "Probe: disabled")
		assert.Contains(t, out, "Sample size: 25")
		assert.Contains(t, out, "Known locations: חיפה, Eilat")
		assert.Contains(t, out, "Rotate at: 10 MB, keep 3")
		assert.Contains(t, out, "Warning: remote timeout too short")
	})

	t.Run("not configured", func(t *testing.T) {
		withServices(t, Services{})

		_, err := executeCommand(t, "settings")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "settings service not configured")
	})
}

func TestSettingsSyncIntervalCmd(t *testing.T) {
	t.Run("sets interval", func(t *testing.T) {
		svc := &mockSettingsService{}
		withServices(t, Services{Settings: svc})

		out, err := executeCommand(t, "settings", "sync-interval", "2m")

		require.NoError(t, err)
		assert.Equal(t, "2m", svc.interval)
		assert.Contains(t, out, "Sync interval set to 2m")
	})

	t.Run("disables", func(t *testing.T) {
		withServices(t, Services{Settings: &mockSettingsService{}})

		out, err := executeCommand(t, "settings", "sync-interval", "0")

		require.NoError(t, err)
		assert.Contains(t, out, "Sync interval set to off")
	})

	t.Run("invalid", func(t *testing.T) {
		withServices(t, Services{Settings: &mockSettingsService{err: domain.ErrInvalidInput}})

		_, err := executeCommand(t, "settings", "sync-interval", "soon")

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
