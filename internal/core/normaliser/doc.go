// Package normaliser turns raw sheet rows into canonical delivery records
// according to a field mapping.
//
// Normalisation never fails: missing or unusable cells fall back to
// defaults so every non-blank row yields a record. Record IDs are derived
// from the tracking number and row, so re-normalising the same rows yields
// the same IDs.
package normaliser
