package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manav03panchal/medtime/internal/model"
)

// DiscordFormatter formats notifications for Discord webhooks.
type DiscordFormatter struct{}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

// Format converts a notification to Discord webhook format. Action links
// become a markdown line under the description.
func (f *DiscordFormatter) Format(n *model.Notification) ([]byte, error) {
	embed := discordEmbed{
		Title:       n.Title,
		Description: n.Message,
		Color:       colorOf(n),
		Timestamp:   n.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		Footer:      &discordEmbedFooter{Text: footerText},
	}

	for _, key := range sortedFields(n) {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   key,
			Value:  n.Fields[key],
			Inline: true,
		})
	}

	if len(n.Actions) > 0 {
		links := make([]string, len(n.Actions))
		for i, a := range n.Actions {
			links[i] = fmt.Sprintf("[%s](%s)", a.Label, a.URL)
		}
		embed.Description += "\n\n" + strings.Join(links, " · ")
	}

	return json.Marshal(discordPayload{Embeds: []discordEmbed{embed}})
}

// ContentType returns the content type for Discord webhooks.
func (f *DiscordFormatter) ContentType() string {
	return "application/json"
}
