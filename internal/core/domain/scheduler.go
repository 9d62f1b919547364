package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration

	LastRun     time.Time
	NextRun     time.Time
	LastError   string
	LastSuccess time.Time

	Enabled bool
}

// Due reports whether the task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && (t.NextRun.IsZero() || !t.NextRun.After(now))
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts sources synced or changes replayed.
	ItemsProcessed int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// SchedulerConfigFromSettings derives task intervals from sync settings.
func SchedulerConfigFromSettings(s SyncSettings) SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDRecordSync: {Enabled: s.Interval > 0, Interval: s.Interval},
			TaskIDQueueDrain: {Enabled: s.DrainInterval > 0, Interval: s.DrainInterval},
		},
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDRecordSync = "record-sync"
	TaskIDQueueDrain = "queue-drain"
)
