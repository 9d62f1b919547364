package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// Common Google API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the spreadsheet or range was not found.
	ErrNotFound = errors.New("google: resource not found")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google: rate limit exceeded")

	// ErrBadRequest indicates Google refused the request shape (bad range).
	ErrBadRequest = errors.New("google: bad request")
)

// statusCode extracts the HTTP status of a googleapi error, or 0.
func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || statusCode(err) == http.StatusTooManyRequests
}

// RetryAfter returns the Retry-After header of a rate limit response in
// seconds, or 0 when absent.
func RetryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || secs < 0 {
		return 0
	}
	return secs
}

// WrapError converts a Google API error to one of the package sentinels.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch statusCode(err) {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	default:
		return err
	}
}

// FetchError classifies a read failure. A rejected range means the sheet
// cannot be read as configured and is reported as malformed; anything else
// is treated as the source being unavailable so the cache can serve.
func FetchError(err error) error {
	if err == nil {
		return nil
	}
	wrapped := WrapError(err)
	if errors.Is(wrapped, ErrBadRequest) {
		return fmt.Errorf("%w: %w", domain.ErrSourceMalformed, wrapped)
	}
	return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, wrapped)
}

// PushError classifies a write failure. Client errors will not succeed on
// retry and are rejections; rate limits, server errors and transport
// failures leave the source unavailable.
func PushError(err error) error {
	if err == nil {
		return nil
	}
	wrapped := WrapError(err)
	code := statusCode(err)
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", domain.ErrMutationRejected, wrapped)
	}
	return fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, wrapped)
}
