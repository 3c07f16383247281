package notify

import (
	"encoding/json"
	"fmt"

	"github.com/manav03panchal/medtime/internal/model"
)

// TeamsFormatter formats notifications for Microsoft Teams webhooks.
type TeamsFormatter struct{}

// teamsPayload is the MessageCard format.
type teamsPayload struct {
	Type            string         `json:"@type"`
	Context         string         `json:"@context"`
	ThemeColor      string         `json:"themeColor,omitempty"`
	Summary         string         `json:"summary"`
	Sections        []teamsSection `json:"sections,omitempty"`
	PotentialAction []teamsAction  `json:"potentialAction,omitempty"`
}

type teamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	Text             string      `json:"text,omitempty"`
	Facts            []teamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown"`
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsAction struct {
	Type    string        `json:"@type"`
	Name    string        `json:"name"`
	Targets []teamsTarget `json:"targets"`
}

type teamsTarget struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

// Format converts a notification to Teams webhook format.
func (f *TeamsFormatter) Format(n *model.Notification) ([]byte, error) {
	section := teamsSection{
		ActivityTitle:    n.Title,
		ActivitySubtitle: fmt.Sprintf("%s | %s", footerText, n.Timestamp.Format("Jan 2, 3:04 PM")),
		Text:             n.Message,
		Markdown:         true,
	}
	for _, key := range sortedFields(n) {
		section.Facts = append(section.Facts, teamsFact{Name: key, Value: n.Fields[key]})
	}

	payload := teamsPayload{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: fmt.Sprintf("%06X", colorOf(n)),
		Summary:    n.Title,
		Sections:   []teamsSection{section},
	}
	for _, a := range n.Actions {
		payload.PotentialAction = append(payload.PotentialAction, teamsAction{
			Type:    "OpenUri",
			Name:    a.Label,
			Targets: []teamsTarget{{OS: "default", URI: a.URL}},
		})
	}

	return json.Marshal(payload)
}

// ContentType returns the content type for Teams webhooks.
func (f *TeamsFormatter) ContentType() string {
	return "application/json"
}
