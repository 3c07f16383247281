package model

import (
	"time"
)

// NotificationType defines the type of notification.
type NotificationType string

// Notification types.
const (
	NotifyDose     NotificationType = "dose"
	NotifyFollowUp NotificationType = "follow_up"
	NotifyMissed   NotificationType = "missed"
	NotifyTest     NotificationType = "test"
)

// NotificationAction is a link the recipient can follow to respond.
type NotificationAction struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Notification is what a delivery channel renders for one alarm.
type Notification struct {
	Type      NotificationType     `json:"type"`
	AlarmID   string               `json:"alarm_id,omitempty"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Fields    map[string]string    `json:"fields,omitempty"`
	Actions   []NotificationAction `json:"actions,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Color     int                  `json:"color,omitempty"`
}

// NewNotification creates a new notification.
func NewNotification(t NotificationType, title, message string) *Notification {
	return &Notification{
		Type:      t,
		Title:     title,
		Message:   message,
		Fields:    make(map[string]string),
		Timestamp: time.Now(),
		Color:     DefaultColorForType(t),
	}
}

// WithField adds a field to the notification.
func (n *Notification) WithField(key, value string) *Notification {
	if value == "" {
		return n
	}
	if n.Fields == nil {
		n.Fields = make(map[string]string)
	}
	n.Fields[key] = value
	return n
}

// WithAction appends a response link.
func (n *Notification) WithAction(label, url string) *Notification {
	n.Actions = append(n.Actions, NotificationAction{Label: label, URL: url})
	return n
}

// Notification colors (Discord-compatible hex values).
const (
	ColorSuccess = 0x57F287 // Green
	ColorWarning = 0xFEE75C // Yellow
	ColorInfo    = 0x5865F2 // Blurple
	ColorError   = 0xED4245 // Red
	ColorPrimary = 0x3498DB // Blue
)

// DefaultColorForType returns the default color for a notification type.
func DefaultColorForType(t NotificationType) int {
	switch t {
	case NotifyDose:
		return ColorPrimary
	case NotifyFollowUp:
		return ColorWarning
	case NotifyMissed:
		return ColorError
	case NotifyTest:
		return ColorSuccess
	default:
		return ColorInfo
	}
}

// TypeLabel returns a human-readable label for the notification type.
func (n *Notification) TypeLabel() string {
	switch n.Type {
	case NotifyDose:
		return "Dose Reminder"
	case NotifyFollowUp:
		return "Snoozed Dose"
	case NotifyMissed:
		return "Missed Dose"
	case NotifyTest:
		return "Test Notification"
	default:
		return "Notification"
	}
}
