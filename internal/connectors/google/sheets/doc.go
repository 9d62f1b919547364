// Package sheets implements the Google Sheets connector: it reads a value
// range as the delivery table and writes status changes back into it.
//
// Source config keys:
//   - spreadsheet_id (required)
//   - range: A1 range whose first row is the header; defaults to the
//     first sheet of the spreadsheet
//   - credentials_file, token_file or api_key
package sheets
