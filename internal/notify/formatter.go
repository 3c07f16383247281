// Package notify delivers fired medication alarms. It defines the
// notification port the scheduler registers alarms with, a badger-backed
// local implementation, an in-memory implementation, and webhook delivery
// with per-service payload formatters.
package notify

import (
	"maps"
	"slices"

	"github.com/manav03panchal/medtime/internal/model"
)

// Formatter formats notifications for a specific webhook type.
type Formatter interface {
	// Format converts a notification into the webhook-specific payload.
	Format(n *model.Notification) ([]byte, error)

	// ContentType returns the HTTP Content-Type for the payload.
	ContentType() string
}

// GetFormatter returns the appropriate formatter for a webhook type.
func GetFormatter(webhookType string) Formatter {
	switch webhookType {
	case model.WebhookTypeDiscord:
		return &DiscordFormatter{}
	case model.WebhookTypeSlack:
		return &SlackFormatter{}
	case model.WebhookTypeTeams:
		return &TeamsFormatter{}
	default:
		return &GenericFormatter{}
	}
}

// colorOf falls back to the type colour when none was set.
func colorOf(n *model.Notification) int {
	if n.Color != 0 {
		return n.Color
	}
	return model.DefaultColorForType(n.Type)
}

// sortedFields returns field names in a stable order.
func sortedFields(n *model.Notification) []string {
	return slices.Sorted(maps.Keys(n.Fields))
}

const footerText = "medtime"
