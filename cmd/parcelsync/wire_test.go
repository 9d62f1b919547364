package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parcelsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/parcelsync/internal/core/classifier"
	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

func TestClassifierConfig(t *testing.T) {
	t.Run("zero settings keep defaults", func(t *testing.T) {
		assert.Equal(t, classifier.DefaultConfig(), classifierConfig(domain.ClassifierSettings{}))
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := classifierConfig(domain.ClassifierSettings{SampleSize: 10, MinAssignScore: 35, ReviewConfidence: 70})

		assert.Equal(t, 10, cfg.SampleSize)
		assert.Equal(t, 35.0, cfg.MinAssignScore)
		assert.Equal(t, 70, cfg.ReviewConfidence)
		assert.Equal(t, classifier.DefaultConfig().HeaderWeight, cfg.HeaderWeight)
	})
}

func TestBootstrap_Ephemeral(t *testing.T) {
	t.Setenv("PARCELSYNC_CONNECTIVITY_PROBE_URL", "")
	configDir := t.TempDir()

	svc, release, err := bootstrap(context.Background(), cli.Options{ConfigDir: configDir, Ephemeral: true})
	require.NoError(t, err)
	defer release()

	assert.True(t, svc.Connectivity.Online())
	assert.ElementsMatch(t, []string{domain.SourceTypeCSV, domain.SourceTypeGoogleSheet}, svc.Factory.SupportedTypes())

	ctx := context.Background()
	csvPath := filepath.Join(t.TempDir(), "deliveries.csv")
	content := "מספר משלוח,שם,טלפון,כתובת,סטטוס\n" +
		"TRK1001,דנה כהן,050-1234567,הרצל 1 תל אביב,ממתין\n" +
		"TRK1002,אבי לוי,052-7654321,ויצמן 5 חיפה,נמסר\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0600))

	require.NoError(t, svc.Source.Add(ctx, domain.Source{
		ID:     "wh",
		Type:   domain.SourceTypeCSV,
		Name:   "Warehouse",
		Config: map[string]string{domain.ConfigPath: csvPath},
	}))

	snap, err := svc.Sync.Sync(ctx, "wh")
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)

	refs, err := svc.Sync.SetStatus(ctx, driving.StatusRequest{
		SourceID:       "wh",
		TrackingNumber: "TRK1001",
		Status:         domain.StatusDelivered,
		UpdateType:     domain.UpdateSingle,
	})
	require.NoError(t, err)
	require.Len(t, refs, 1)

	pending, err := svc.Queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "TRK1001,דנה כהן,050-1234567,הרצל 1 תל אביב,delivered")

	events, err := svc.History.List(ctx, "wh", "", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "TRK1001", events[0].TrackingNumber)
}

func TestBootstrap_SQLite(t *testing.T) {
	t.Setenv("PARCELSYNC_CONNECTIVITY_PROBE_URL", "")
	dataDir := t.TempDir()

	svc, release, err := bootstrap(context.Background(), cli.Options{ConfigDir: t.TempDir(), DataDir: dataDir})
	require.NoError(t, err)

	sources, err := svc.Source.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sources)
	release()

	_, err = os.Stat(filepath.Join(dataDir, "parcelsync.db"))
	assert.NoError(t, err)
}

func TestBootstrap_BadConfig(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("[[[ nope"), 0600))

	_, _, err := bootstrap(context.Background(), cli.Options{ConfigDir: configDir, Ephemeral: true})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
