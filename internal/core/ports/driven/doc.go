// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Connector: Reads rows from and writes statuses back to a row source
//   - ConnectorFactory: Creates connectors from source configuration
//   - SourceStore: Source configuration persistence
//   - SnapshotStore: Last known good records per source
//   - MappingHistoryStore: Recently accepted field mappings
//   - ChangeStore: Durable offline change queue
//   - Connectivity: Online/offline signal
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - StatusHistoryStore: Audit trail of confirmed status changes
//   - SchedulerStore: Scheduler persistence across restarts
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
