package domain

import "time"

// SyncSettings controls the sync orchestrator and its background triggers.
type SyncSettings struct {
	// Interval is how often records are re-fetched while online.
	Interval time.Duration

	// DrainInterval is how often the offline queue is replayed while online.
	DrainInterval time.Duration

	// RemoteTimeout bounds each fetch or replay call.
	RemoteTimeout time.Duration
}

// ConnectivitySettings controls the online/offline probe.
type ConnectivitySettings struct {
	// ProbeURL is requested to decide whether the network is reachable.
	// Empty means always online.
	ProbeURL string

	// ProbeInterval is how often the probe runs.
	ProbeInterval time.Duration
}

// ClassifierSettings exposes the classifier thresholds worth tuning per install.
// Zero values keep the classifier defaults.
type ClassifierSettings struct {
	SampleSize       int
	MinAssignScore   int
	ReviewConfidence int
}

// NormaliserSettings controls record normalisation.
type NormaliserSettings struct {
	// CountryCode is the international dialling code without '+'.
	CountryCode string

	// KnownLocations are place names that must not be taken as customer names.
	KnownLocations []string
}

// LoggingSettings controls the log sink.
type LoggingSettings struct {
	// File is an optional rotating log file path.
	File string

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

// AppSettings aggregates all application settings.
type AppSettings struct {
	Sync         SyncSettings
	Connectivity ConnectivitySettings
	Classifier   ClassifierSettings
	Normaliser   NormaliserSettings
	Logging      LoggingSettings
}

// DefaultAppSettings returns sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Sync: SyncSettings{
			Interval:      5 * time.Minute,
			DrainInterval: time.Minute,
			RemoteTimeout: 30 * time.Second,
		},
		Connectivity: ConnectivitySettings{
			ProbeURL:      "https://www.google.com/generate_204",
			ProbeInterval: 15 * time.Second,
		},
		Normaliser: NormaliserSettings{
			CountryCode: "972",
		},
		Logging: LoggingSettings{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
