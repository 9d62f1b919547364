// Package connectivity implements driven.Connectivity.
//
// Monitor probes an HTTP endpoint on an interval and reports edges to
// subscribers. Static holds a fixed state that callers flip by hand, and
// is used when no probe URL is configured.
package connectivity
