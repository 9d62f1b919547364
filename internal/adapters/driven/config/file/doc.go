// Package file provides file-based implementations of driven port interfaces.
//
// ConfigStore keeps settings in ~/.parcelsync/config.toml. Dotted keys map
// to TOML tables and PARCELSYNC_* environment variables override the file.
package file
