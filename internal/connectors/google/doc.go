// Package google provides shared infrastructure for Google API connectors.
//
// It holds what the sheets connector needs besides the API calls
// themselves:
//   - Client options from a service account file, an OAuth token file or
//     an API key
//   - Error mapping from googleapi.Error to domain sentinels
//   - Rate limiting to stay inside the Sheets per-user quota
//
// # Usage
//
//	opts, err := google.ClientOptions(google.Credentials{TokenFile: path})
//	svc, err := google.NewSheetsService(ctx, opts...)
//
// # OAuth2 Scopes
//
// Status write-back needs https://www.googleapis.com/auth/spreadsheets.
// An API key only grants read access to public sheets; pushes are then
// rejected by Google with 401/403.
package google
