// Package memory provides in-memory implementations of the driven store
// ports. Nothing survives the process; the CLI uses them for --ephemeral
// runs and tests use them in place of SQLite.
package memory
