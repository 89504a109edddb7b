package spaclient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/bestway-spa/internal/urls"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a transport-level failure (no HTTP response)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the request exceeded its deadline
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the API host refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates the API hostname could not be resolved
	ErrTypeDNS
	// ErrTypeConnection indicates the API answered with a non-200 status
	ErrTypeConnection
	// ErrTypeAuth indicates a missing token or a token the API keeps rejecting
	ErrTypeAuth
	// ErrTypeMalformedResponse indicates a response without an expected field
	ErrTypeMalformedResponse
	// ErrTypeProtocol indicates a body that should be JSON but is not
	ErrTypeProtocol
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeConnection:
		return "Connection Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeMalformedResponse:
		return "Malformed Response"
	case ErrTypeProtocol:
		return "Protocol Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// APIError represents an error that occurred while talking to the spa cloud API
type APIError struct {
	Type       ErrorType // Category of error
	Op         string    // Operation that failed ("token", "fetch", "command")
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Body       string    // Raw response body (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether a later attempt may succeed
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a more specific error type
func ClassifyNetworkError(op string, err error) *APIError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &APIError{
			Type:      ErrTypeTimeout,
			Op:        op,
			Message:   "request timed out",
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &APIError{
			Type:      ErrTypeDNS,
			Op:        op,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Retryable: false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &APIError{
			Type:      ErrTypeConnectionRefused,
			Op:        op,
			Message:   "API host refused connection",
			Err:       err,
			Retryable: true,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(op, urlErr.Err)
	}

	return &APIError{
		Type:      ErrTypeNetwork,
		Op:        op,
		Message:   "network error occurred",
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a transport-level error with automatic classification
func NewNetworkError(op, message string, err error) *APIError {
	classified := ClassifyNetworkError(op, err)
	if classified == nil {
		return &APIError{Type: ErrTypeNetwork, Op: op, Message: message, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewConnectionError creates an error for a non-200 HTTP response
func NewConnectionError(op, message string, statusCode int, body string) *APIError {
	return &APIError{
		Type:       ErrTypeConnection,
		Op:         op,
		Message:    message,
		StatusCode: statusCode,
		Body:       body,
		Retryable:  statusCode >= 500,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(op, message string) *APIError {
	return &APIError{
		Type:    ErrTypeAuth,
		Op:      op,
		Message: message,
	}
}

// NewMalformedResponseError creates an error for a response missing an expected field
func NewMalformedResponseError(op, message, body string) *APIError {
	return &APIError{
		Type:    ErrTypeMalformedResponse,
		Op:      op,
		Message: message,
		Body:    body,
	}
}

// NewProtocolError creates an error for a body that failed to decode as JSON
func NewProtocolError(op, message, body string, err error) *APIError {
	return &APIError{
		Type:    ErrTypeProtocol,
		Op:      op,
		Message: message,
		Body:    body,
		Err:     err,
	}
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNetworkError reports whether err is a transport failure (timeout, refused, DNS, ...)
func IsNetworkError(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Type == ErrTypeNetwork ||
			apiErr.Type == ErrTypeTimeout ||
			apiErr.Type == ErrTypeConnectionRefused ||
			apiErr.Type == ErrTypeDNS
	}
	return false
}

// IsConnectionError reports whether err means the API could not be used:
// either a non-200 response or a transport failure.
func IsConnectionError(err error) bool {
	if apiErr, ok := asAPIError(err); ok && apiErr.Type == ErrTypeConnection {
		return true
	}
	return IsNetworkError(err)
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Type == ErrTypeAuth
	}
	return false
}

// IsMalformedResponseError checks if an error is a missing-field error
func IsMalformedResponseError(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Type == ErrTypeMalformedResponse
	}
	return false
}

// IsProtocolError checks if an error is a JSON decode error
func IsProtocolError(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Type == ErrTypeProtocol
	}
	return false
}

// IsRetryable checks if an error may succeed on a later polling cycle
func IsRetryable(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Retryable
	}
	return false
}

// TroubleshootingHint returns user-friendly troubleshooting advice for an error
func TroubleshootingHint(err error) string {
	apiErr, ok := asAPIError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch apiErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The Bestway cloud did not respond in time.",
			"Troubleshooting:",
			"  • Check your internet connection",
			"  • Try increasing api.timeout in the config file",
		}, "\n")

	case ErrTypeDNS, ErrTypeConnectionRefused, ErrTypeNetwork:
		return strings.Join([]string{
			"Could not reach the Bestway cloud API.",
			"Troubleshooting:",
			"  • Check your internet connection",
			"  • Verify api.base_url in the config file",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"The Bestway cloud rejected the credentials.",
			"Troubleshooting:",
			"  • Check appid and appsecret",
			"  • Check registration_id, visitor_id and client_id",
			"  • Re-run 'bestway-cfg init' to re-enter credentials",
			"  • Credential guide: " + urls.Credentials,
		}, "\n")

	case ErrTypeConnection:
		if apiErr.StatusCode >= 500 {
			return fmt.Sprintf("The Bestway cloud returned a server error (HTTP %d). Try again later.", apiErr.StatusCode)
		}
		return fmt.Sprintf("The Bestway cloud returned HTTP %d. Check device_id and product_id.", apiErr.StatusCode)

	case ErrTypeMalformedResponse, ErrTypeProtocol:
		return strings.Join([]string{
			"The Bestway cloud returned an unexpected response.",
			"Troubleshooting:",
			"  • Run with --log-level debug to see the raw response",
			"  • The vendor API may have changed; see " + urls.TroubleshootingGuide,
		}, "\n")

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	apiErr, ok := asAPIError(err)
	if !ok {
		return err.Error()
	}

	switch apiErr.Type {
	case ErrTypeTimeout:
		return "Spa cloud not responding (timeout)"
	case ErrTypeConnectionRefused, ErrTypeDNS, ErrTypeNetwork:
		return "Cannot reach spa cloud - check connection"
	case ErrTypeConnection:
		return fmt.Sprintf("Spa cloud error (HTTP %d)", apiErr.StatusCode)
	case ErrTypeAuth:
		return "Authentication failed - check credentials"
	case ErrTypeMalformedResponse:
		return "Unexpected response from spa cloud"
	case ErrTypeProtocol:
		return "Failed to parse spa cloud response"
	default:
		return apiErr.Message
	}
}
