// Package connectors provides implementations of the Connector interface
// for the supported row sources: Google Sheets (google/sheets) and local
// CSV files (csvfile).
//
// Builders are registered with a Factory at startup; NewDefaultFactory
// registers every built-in type.
package connectors
