package errors

import "errors"

// Suggestions maps common errors to helpful suggestions.
var Suggestions = map[error]string{
	ErrInvalidTimestamp:   "Try formats like 'today', 'tomorrow', '2026-03-01' or 'next monday'.",
	ErrInvalidTimeOfDay:   "Times of day use 24-hour HH:MM, for example 08:00 or 21:30.",
	ErrInvalidRecurrence:  "Use --daily, --weekly mon,wed,fri or --monthly 15.",
	ErrInvalidDuration:    "Try formats like '10m', '1h30m' or '45 minutes'.",
	ErrInvalidURL:         "Provide a valid URL starting with https:// (or http:// for localhost).",
	ErrReminderNotFound:   "Use 'medtime remind list' to see reminders.",
	ErrWebhookNotFound:    "Use 'medtime webhook list' to see configured webhooks.",
	ErrUnknownAlarmID:     "Use 'medtime alarms' to see scheduled alarm ids.",
	ErrStorageUnavailable: "Check the data directory (~/.local/share/medtime/) and that no other process holds the database.",
	ErrPermissionDenied:   "Add a delivery webhook with 'medtime webhook add' or set notifications.log_only in the config.",
	ErrQuotaExceeded:      "Raise notifications.max_scheduled or disable reminders you no longer need.",
	ErrDaemonNotRunning:   "Start it with 'medtime daemon start'.",
}

// GetSuggestion returns a suggestion for an error, if available.
// It walks the error chain to find matching suggestions.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	if ue, ok := AsUserError(err); ok && ue.Suggestion != "" {
		return ue.Suggestion
	}

	for knownErr, suggestion := range Suggestions {
		if errors.Is(err, knownErr) {
			return suggestion
		}
	}

	return ""
}
