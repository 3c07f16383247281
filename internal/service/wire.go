package service

import (
	"fmt"
	"net/http"

	"github.com/manav03panchal/medtime/internal/errors"
)

// Error kinds carried over the HTTP API.
const (
	KindValidation  = "validation"
	KindNotFound    = "not_found"
	KindPermission  = "permission_denied"
	KindQuota       = "quota_exceeded"
	KindStorage     = "storage_unavailable"
	KindWebhookGone = "webhook_not_found"
	KindInternal    = "internal"
)

// ErrorBody is the JSON error envelope of the HTTP API.
type ErrorBody struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	Suggestion string `json:"suggestion,omitempty"`
}

// EncodeError maps err to an HTTP status and envelope.
func EncodeError(err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error(), Suggestion: errors.GetSuggestion(err)}
	if ue, ok := errors.AsUserError(err); ok {
		body.Error = ue.Message
		if ue.Suggestion != "" {
			body.Suggestion = ue.Suggestion
		}
	}

	switch {
	case errors.Is(err, errors.ErrReminderNotFound):
		body.Kind = KindNotFound
		return http.StatusNotFound, body
	case errors.Is(err, errors.ErrWebhookNotFound):
		body.Kind = KindWebhookGone
		return http.StatusNotFound, body
	case errors.Is(err, errors.ErrValidation):
		body.Kind = KindValidation
		return http.StatusBadRequest, body
	case errors.Is(err, errors.ErrPermissionDenied):
		body.Kind = KindPermission
		return http.StatusConflict, body
	case errors.Is(err, errors.ErrQuotaExceeded):
		body.Kind = KindQuota
		return http.StatusInsufficientStorage, body
	case errors.Is(err, errors.ErrStorageUnavailable):
		body.Kind = KindStorage
		return http.StatusServiceUnavailable, body
	default:
		body.Kind = KindInternal
		return http.StatusInternalServerError, body
	}
}

// DecodeError rebuilds a typed error from an envelope so errors.Is works
// the same on both sides of the API.
func DecodeError(status int, body ErrorBody) error {
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch body.Kind {
	case KindValidation:
		return errors.NewUserError(msg, body.Suggestion)
	case KindNotFound:
		return fmt.Errorf("%w (%s)", errors.ErrReminderNotFound, msg)
	case KindWebhookGone:
		return fmt.Errorf("%w (%s)", errors.ErrWebhookNotFound, msg)
	case KindPermission:
		return errors.NewSystemErrorWithOp("daemon", msg, errors.ErrPermissionDenied)
	case KindQuota:
		return errors.NewSystemErrorWithOp("daemon", msg, errors.ErrQuotaExceeded)
	case KindStorage:
		return errors.NewStorageUnavailable("daemon", errors.New(msg))
	default:
		return errors.NewSystemErrorWithOp("daemon", fmt.Sprintf("HTTP %d", status), errors.New(msg))
	}
}
