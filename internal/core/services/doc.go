// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The sync orchestrator is the centre of the package: it fetches sources,
// classifies and normalises their rows, serves the cached snapshot when a
// source is unreachable, and replays the change queue.
package services
