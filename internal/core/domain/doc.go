// Package domain defines the core business entities for parcelsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Sheet: Headers and raw string cells fetched from a row source
//   - FieldMapping: Which source column feeds which semantic field
//   - DeliveryRecord: A normalised delivery row
//   - PendingChange: A status mutation waiting for remote confirmation
//   - Snapshot: The cached state of one source
//   - Source: A configured remote spreadsheet
//
// The bilingual status vocabulary also lives here because both the
// column classifier and the record normaliser consult it.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
