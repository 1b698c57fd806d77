package instagram

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCredentials means the access token or account id is not
	// configured. Checked before any network call.
	ErrMissingCredentials = errors.New("instagram credentials are not configured")

	// ErrNoImages means the caller supplied an empty image list.
	ErrNoImages = errors.New("at least one image URL is required")
)

// APIError is the structured error payload returned by the Graph API.
type APIError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode"`
	FBTraceID string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "instagram api error"
	}
	return fmt.Sprintf("instagram api error (code %d): %s", e.Code, e.Message)
}

// errorEnvelope is the wrapper the Graph API puts around APIError.
type errorEnvelope struct {
	Err APIError `json:"error"`
}

// isTransient reports whether a publish failure is worth retrying.
// The Graph API signals temporary conditions with code 1 ("unknown error",
// typically raised while the carousel container is still processing) and
// code 2 ("service temporarily unavailable"). Message sniffing is kept as a
// fallback for responses that carry no usable code.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 1 || apiErr.Code == 2 {
			return true
		}
		return strings.Contains(strings.ToLower(apiErr.Message), "unknown error")
	}
	return false
}
