package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
)

// APIError is a non-2xx answer from the server. Message is the server's text
// unchanged.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d", e.StatusCode)
	}
	return e.Message
}

// Is lets callers match against the pkg/errors values. Every APIError is a
// store failure from the caller's point of view; 404 also matches NotFound.
func (e *APIError) Is(target error) bool {
	var t *appErrors.Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	switch {
	case t.Code == appErrors.ErrStore.Code:
		return true
	case e.Code != "" && t.Code == e.Code:
		return true
	case e.StatusCode == http.StatusNotFound && t.Code == appErrors.ErrNotFound.Code:
		return true
	case e.StatusCode == http.StatusForbidden && t.Code == appErrors.ErrPermissionDenied.Code:
		return true
	}
	return false
}

var (
	// ErrSessionExpired is returned once the refresh exchange fails; the
	// stored session has been cleared by then.
	ErrSessionExpired = appErrors.ErrSessionExpired
	// ErrInvalidCredentials is returned by Login on a rejected email or password.
	ErrInvalidCredentials = appErrors.ErrInvalidCredentials
	// ErrNotFound matches any APIError with status 404.
	ErrNotFound = appErrors.ErrNotFound
)
