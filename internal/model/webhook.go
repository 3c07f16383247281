package model

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/manav03panchal/medtime/internal/logging"
)

// PrefixWebhook is the database key prefix for webhooks.
const PrefixWebhook = "webhook"

// Webhook type constants.
const (
	WebhookTypeDiscord = "discord"
	WebhookTypeSlack   = "slack"
	WebhookTypeTeams   = "teams"
	WebhookTypeGeneric = "generic"
)

// Webhook is a delivery channel for fired alarms.
type Webhook struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
	// Events limits delivery to these notification types; empty means all.
	Events    []NotificationType `json:"events,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	LastUsed  time.Time          `json:"last_used,omitempty"`
	LastError string             `json:"last_error,omitempty"`
}

// SetKey sets the database key for this webhook.
func (w *Webhook) SetKey(key string) {
	w.Key = key
}

// GetKey returns the database key for this webhook.
func (w *Webhook) GetKey() string {
	return w.Key
}

// Accepts reports whether the webhook is enabled for notifications of type t.
func (w *Webhook) Accepts(t NotificationType) bool {
	if !w.Enabled {
		return false
	}
	return len(w.Events) == 0 || slices.Contains(w.Events, t)
}

// MaskedURL returns the URL with its secret path masked.
func (w *Webhook) MaskedURL() string {
	return logging.MaskURL(w.URL)
}

// GenerateWebhookKey generates a database key for a webhook.
func GenerateWebhookKey(name string) string {
	return PrefixWebhook + ":" + name
}

// NewWebhook creates a new enabled webhook.
func NewWebhook(name, webhookType, url string) *Webhook {
	return &Webhook{
		Key:       GenerateWebhookKey(name),
		Name:      name,
		Type:      webhookType,
		URL:       url,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
}

// ValidWebhookTypes returns the list of valid webhook types.
func ValidWebhookTypes() []string {
	return []string{WebhookTypeDiscord, WebhookTypeSlack, WebhookTypeTeams, WebhookTypeGeneric}
}

// IsValidWebhookType checks if a type is valid.
func IsValidWebhookType(t string) bool {
	return slices.Contains(ValidWebhookTypes(), t)
}

var webhookNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// IsValidWebhookName checks if a webhook name is valid.
func IsValidWebhookName(name string) bool {
	if len(name) == 0 || len(name) > 50 {
		return false
	}
	return webhookNameRegex.MatchString(name)
}

// DetectWebhookType attempts to detect the webhook type from the URL.
func DetectWebhookType(url string) string {
	urlLower := strings.ToLower(url)

	switch {
	case strings.Contains(urlLower, "discord.com/api/webhooks"):
		return WebhookTypeDiscord
	case strings.Contains(urlLower, "hooks.slack.com"):
		return WebhookTypeSlack
	case strings.Contains(urlLower, "outlook.office.com/webhook") ||
		strings.Contains(urlLower, "webhook.office.com"):
		return WebhookTypeTeams
	default:
		return WebhookTypeGeneric
	}
}
