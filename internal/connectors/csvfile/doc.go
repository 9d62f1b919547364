// Package csvfile implements a connector over a local CSV file, typically
// a courier export dropped into a shared folder.
//
// Source config keys:
//   - path (required)
//   - encoding: utf-8 (default), utf-16, utf-16le, utf-16be, windows-1255
//   - delimiter: a single character, or "tab"; defaults to ','
//
// Status changes are written back by rewriting the whole file in its
// original encoding. Watch reports edits made by other programs.
package csvfile
