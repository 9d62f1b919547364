package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driven"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keySyncInterval       = "sync.interval"
	keyDrainInterval      = "sync.drain_interval"
	keyRemoteTimeout      = "remote.timeout"
	keyProbeURL           = "connectivity.probe_url"
	keyProbeInterval      = "connectivity.probe_interval"
	keySampleSize         = "classifier.sample_size"
	keyMinAssignScore     = "classifier.min_assign_score"
	keyReviewConfidence   = "classifier.review_confidence"
	keyCountryCode        = "normaliser.country_code"
	keyKnownLocations     = "normaliser.known_locations"
	keyLogFile            = "logging.file"
	keyLogMaxSizeMB       = "logging.max_size_mb"
	keyLogMaxBackups      = "logging.max_backups"
	minimumSyncInterval   = 10 * time.Second
	minimumProbeInterval  = time.Second
	maximumConfidenceBand = 100
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings, filling unset keys with
// defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	probeURL := d.Connectivity.ProbeURL
	if _, ok := s.configStore.Get(keyProbeURL); ok {
		probeURL = s.configStore.GetString(keyProbeURL)
	}

	knownLocations := s.configStore.GetStringSlice(keyKnownLocations)
	if len(knownLocations) == 0 {
		knownLocations = d.Normaliser.KnownLocations
	}

	return &domain.AppSettings{
		Sync: domain.SyncSettings{
			Interval:      s.getDuration(keySyncInterval, d.Sync.Interval),
			DrainInterval: s.getDuration(keyDrainInterval, d.Sync.DrainInterval),
			RemoteTimeout: s.getDuration(keyRemoteTimeout, d.Sync.RemoteTimeout),
		},
		Connectivity: domain.ConnectivitySettings{
			ProbeURL:      probeURL,
			ProbeInterval: s.getDuration(keyProbeInterval, d.Connectivity.ProbeInterval),
		},
		Classifier: domain.ClassifierSettings{
			SampleSize:       s.getInt(keySampleSize, d.Classifier.SampleSize),
			MinAssignScore:   s.getInt(keyMinAssignScore, d.Classifier.MinAssignScore),
			ReviewConfidence: s.getInt(keyReviewConfidence, d.Classifier.ReviewConfidence),
		},
		Normaliser: domain.NormaliserSettings{
			CountryCode:    s.getString(keyCountryCode, d.Normaliser.CountryCode),
			KnownLocations: knownLocations,
		},
		Logging: domain.LoggingSettings{
			File:       s.getString(keyLogFile, d.Logging.File),
			MaxSizeMB:  s.getInt(keyLogMaxSizeMB, d.Logging.MaxSizeMB),
			MaxBackups: s.getInt(keyLogMaxBackups, d.Logging.MaxBackups),
		},
	}, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keySyncInterval, settings.Sync.Interval.String()},
		{keyDrainInterval, settings.Sync.DrainInterval.String()},
		{keyRemoteTimeout, settings.Sync.RemoteTimeout.String()},
		{keyProbeURL, settings.Connectivity.ProbeURL},
		{keyProbeInterval, settings.Connectivity.ProbeInterval.String()},
		{keySampleSize, settings.Classifier.SampleSize},
		{keyMinAssignScore, settings.Classifier.MinAssignScore},
		{keyReviewConfidence, settings.Classifier.ReviewConfidence},
		{keyCountryCode, settings.Normaliser.CountryCode},
		{keyLogFile, settings.Logging.File},
		{keyLogMaxSizeMB, settings.Logging.MaxSizeMB},
		{keyLogMaxBackups, settings.Logging.MaxBackups},
	}
	if len(settings.Normaliser.KnownLocations) > 0 {
		values = append(values, struct {
			key   string
			value any
		}{keyKnownLocations, settings.Normaliser.KnownLocations})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetSyncInterval updates the periodic re-sync interval.
func (s *SettingsService) SetSyncInterval(interval string) error {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Errorf("%w: sync interval %q: %w", domain.ErrInvalidInput, interval, err)
	}
	if d != 0 && d < minimumSyncInterval {
		return fmt.Errorf("%w: sync interval must be 0 (disabled) or at least %s", domain.ErrInvalidInput, minimumSyncInterval)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Sync.Interval = d
	return s.Save(settings)
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Sync.Interval != 0 && settings.Sync.Interval < minimumSyncInterval {
		return fmt.Errorf("%w: sync interval %s below %s", domain.ErrInvalidInput, settings.Sync.Interval, minimumSyncInterval)
	}
	if settings.Connectivity.ProbeURL != "" && settings.Connectivity.ProbeInterval < minimumProbeInterval {
		return fmt.Errorf("%w: probe interval %s below %s", domain.ErrInvalidInput, settings.Connectivity.ProbeInterval, minimumProbeInterval)
	}
	if rc := settings.Classifier.ReviewConfidence; rc < 0 || rc > maximumConfidenceBand {
		return fmt.Errorf("%w: review confidence %d outside 0-100", domain.ErrInvalidInput, rc)
	}
	if settings.Normaliser.CountryCode == "" {
		return fmt.Errorf("%w: country code is empty", domain.ErrInvalidInput)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
