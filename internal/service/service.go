// Package service is the facade every front end talks to: the CLI, the
// daemon's HTTP API, the MCP server and the dashboard. Local runs the
// engine in process; Remote forwards to a running daemon.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
	"github.com/manav03panchal/medtime/internal/scheduler"
)

// Service is the medtime application surface.
type Service interface {
	ListReminders(ctx context.Context) ([]*model.MedicationReminder, error)
	GetReminder(ctx context.Context, id string) (*model.MedicationReminder, error)
	// SaveReminder creates or replaces r and syncs its alarms. The reminder
	// is stored even when the returned error reports that its alarms could
	// not be registered.
	SaveReminder(ctx context.Context, r *model.MedicationReminder) (*model.MedicationReminder, error)
	DeleteReminder(ctx context.Context, id string) error

	Act(ctx context.Context, req ActionRequest) (scheduler.Outcome, error)
	Adherence(ctx context.Context, medicationID string) ([]model.AdherenceLogEntry, error)
	Alarms(ctx context.Context) ([]model.ScheduledAlarm, error)
	Pending(ctx context.Context) ([]model.PendingFiring, error)
	SyncAll(ctx context.Context) (scheduler.SyncReport, error)

	Preferences(ctx context.Context) (model.NotificationPreferences, error)
	SetPreferences(ctx context.Context, p model.NotificationPreferences) (scheduler.SyncReport, error)

	ListWebhooks(ctx context.Context) ([]*model.Webhook, error)
	AddWebhook(ctx context.Context, w *model.Webhook) error
	RemoveWebhook(ctx context.Context, name string) error
	TestWebhook(ctx context.Context, name string) (WebhookTestResult, error)

	ClearData(ctx context.Context) (ClearResult, error)
}

// ActionRequest is the delivery callback every channel decodes into.
// An empty Action reports that the alarm fired without a response yet.
type ActionRequest struct {
	AlarmID string `json:"alarmId"`
	Action  string `json:"action,omitempty"`
	// FiredAt is epoch milliseconds of the firing.
	FiredAt int64 `json:"firedAt,omitempty"`
	Minutes int   `json:"minutes,omitempty"`
}

// IsFiring reports whether the request carries no user action.
func (r ActionRequest) IsFiring() bool {
	return strings.TrimSpace(r.Action) == ""
}

// FiredTime returns FiredAt as a time, or fallback when unset.
func (r ActionRequest) FiredTime(fallback time.Time) time.Time {
	if r.FiredAt <= 0 {
		return fallback
	}
	return time.UnixMilli(r.FiredAt)
}

// Decode validates the request. defaultSnooze fills a snooze without
// minutes.
func (r ActionRequest) Decode(defaultSnooze int) (model.Action, error) {
	if strings.TrimSpace(r.AlarmID) == "" {
		return model.Action{}, errors.NewUserErrorWithField("alarmId", "", "alarm id is required",
			"Use 'medtime alarms' to list alarm ids.")
	}
	minutes := r.Minutes
	if minutes == 0 {
		minutes = defaultSnooze
	}
	return model.ParseAction(r.Action, minutes)
}

// WebhookTestResult is the outcome of a test delivery.
type WebhookTestResult struct {
	Webhook    string `json:"webhook"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ClearResult reports a data clear.
type ClearResult struct {
	BackupPath string `json:"backup_path,omitempty"`
	Cancelled  int    `json:"cancelled"`
}
