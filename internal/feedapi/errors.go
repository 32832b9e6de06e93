package feedapi

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the feed backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

func handleAPIError(statusCode int) error {
	var msg string
	switch statusCode {
	case http.StatusNotFound:
		msg = "feed API endpoint not found - check SHORTSFEED_API_URL"
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		msg = "feed API rejected the request"
	case http.StatusTooManyRequests:
		msg = "feed API rate limit exceeded - please try again later"
	case http.StatusServiceUnavailable:
		msg = "feed API temporarily unavailable - please try again in a few minutes"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		msg = "feed API server error - please try again later"
	default:
		msg = fmt.Sprintf("feed API error (status %d) - please try again", statusCode)
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}
