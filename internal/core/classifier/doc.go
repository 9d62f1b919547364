// Package classifier infers which spreadsheet column holds which semantic
// delivery field.
//
// The classifier profiles a bounded sample of rows per column, scores every
// column against every field from header keywords and content patterns, and
// assigns columns greedily in field priority order. A previously accepted
// mapping for the same source keeps its assignments stable across syncs, and
// a short history of accepted mappings breaks ties when no prior exists.
//
// Classification is pure: identical input always yields an identical
// mapping, and nothing is read from or written to shared state.
package classifier
