package articleui

import (
	"errors"
	"strings"

	"github.com/SergeyParamoshkin/articleui/client"
)

var (
	// ErrStale is returned when a newer request for the same view region
	// was issued before this one completed. Its response is discarded.
	ErrStale = errors.New("response superseded by a newer request")

	// ErrEmptyFields rejects a save whose title or body is blank.
	ErrEmptyFields = errors.New("title and body must not be empty")

	// ErrSessionExpired rejects a save without a bearer token.
	ErrSessionExpired = errors.New("session expired, please log in again")

	// ErrEditDisabled is returned when the edit control of an article is
	// disabled for the current user.
	ErrEditDisabled = errors.New("editing this article is not allowed")

	// ErrLoadFailed wraps detail fetch failures of the view and edit modals.
	ErrLoadFailed = errors.New("load failed")
)

const (
	msgNetworkError  = "network error"
	msgUpdateFailed  = "update failed"
	msgNoArticles    = "no articles"
	msgNoArticleData = "no article data returned"
	msgLabelsFailed  = "unable to load labels"
	msgSaved         = "saved"
)

// AlertText turns an operation error into the message shown to the user.
func AlertText(err error) string {
	var apiErr *client.APIError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyFields), errors.Is(err, ErrSessionExpired), errors.Is(err, ErrEditDisabled):
		return errorRoot(err).Error()
	case errors.Is(err, ErrLoadFailed):
		return ErrLoadFailed.Error()
	case errors.As(err, &apiErr):
		return apiErr.Text(msgUpdateFailed)
	default:
		return msgUpdateFailed
	}
}

func errorRoot(err error) error {
	for _, sentinel := range []error{ErrEmptyFields, ErrSessionExpired, ErrEditDisabled} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	return err
}

// listErrorText is the inline message of a failed list load: the raw
// response body as received, a generic network error when there is none.
func listErrorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if body := strings.TrimSpace(apiErr.Body); body != "" {
			return "load failed: " + body
		}
	}

	return "load failed: " + msgNetworkError
}
