package notify

import (
	"encoding/json"

	"github.com/manav03panchal/medtime/internal/model"
)

// GenericFormatter formats notifications for generic JSON webhooks.
type GenericFormatter struct{}

type genericPayload struct {
	Type      string                     `json:"type"`
	AlarmID   string                     `json:"alarm_id,omitempty"`
	Title     string                     `json:"title"`
	Message   string                     `json:"message"`
	Fields    map[string]string          `json:"fields,omitempty"`
	Actions   []model.NotificationAction `json:"actions,omitempty"`
	Timestamp string                     `json:"timestamp"`
	Color     int                        `json:"color,omitempty"`
}

// Format converts a notification to a generic webhook format.
func (f *GenericFormatter) Format(n *model.Notification) ([]byte, error) {
	payload := genericPayload{
		Type:      string(n.Type),
		AlarmID:   n.AlarmID,
		Title:     n.Title,
		Message:   n.Message,
		Fields:    n.Fields,
		Actions:   n.Actions,
		Timestamp: n.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		Color:     colorOf(n),
	}
	return json.Marshal(payload)
}

// ContentType returns the content type for generic webhooks.
func (f *GenericFormatter) ContentType() string {
	return "application/json"
}
