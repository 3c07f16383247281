package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manav03panchal/medtime/internal/model"
)

// SlackFormatter formats notifications for Slack webhooks.
type SlackFormatter struct{}

type slackPayload struct {
	Text        string        `json:"text,omitempty"`
	Blocks      []slackBlock  `json:"blocks,omitempty"`
	Attachments []slackAttach `json:"attachments,omitempty"`
}

type slackBlock struct {
	Type     string           `json:"type"`
	Text     *slackBlockText  `json:"text,omitempty"`
	Fields   []slackBlockText `json:"fields,omitempty"`
	Elements []slackElement   `json:"elements,omitempty"`
}

type slackBlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// slackElement is either a context text or an actions button.
type slackElement struct {
	Type string          `json:"type"`
	Text json.RawMessage `json:"text"`
	URL  string          `json:"url,omitempty"`
}

type slackAttach struct {
	Color    string `json:"color,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// Format converts a notification to Slack Block Kit format.
func (f *SlackFormatter) Format(n *model.Notification) ([]byte, error) {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackBlockText{Type: "plain_text", Text: n.Title},
		},
		{
			Type: "section",
			Text: &slackBlockText{Type: "mrkdwn", Text: slackEscape(n.Message)},
		},
	}

	if len(n.Fields) > 0 {
		var fieldTexts []slackBlockText
		for _, key := range sortedFields(n) {
			fieldTexts = append(fieldTexts, slackBlockText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*%s*\n%s", key, slackEscape(n.Fields[key])),
			})
		}
		blocks = append(blocks, slackBlock{Type: "section", Fields: fieldTexts})
	}

	if len(n.Actions) > 0 {
		var buttons []slackElement
		for _, a := range n.Actions {
			label, err := json.Marshal(slackBlockText{Type: "plain_text", Text: a.Label})
			if err != nil {
				return nil, err
			}
			buttons = append(buttons, slackElement{Type: "button", Text: label, URL: a.URL})
		}
		blocks = append(blocks, slackBlock{Type: "actions", Elements: buttons})
	}

	footer, err := json.Marshal(fmt.Sprintf("%s | %s", footerText, n.Timestamp.Format("Jan 2, 3:04 PM")))
	if err != nil {
		return nil, err
	}
	blocks = append(blocks, slackBlock{
		Type:     "context",
		Elements: []slackElement{{Type: "mrkdwn", Text: footer}},
	})

	payload := slackPayload{
		Text:   fmt.Sprintf("*%s*", n.Title),
		Blocks: blocks,
		Attachments: []slackAttach{
			{Color: colorToHex(colorOf(n)), Fallback: n.Title},
		},
	}

	return json.Marshal(payload)
}

// ContentType returns the content type for Slack webhooks.
func (f *SlackFormatter) ContentType() string {
	return "application/json"
}

// colorToHex converts an integer color to hex string.
func colorToHex(color int) string {
	return fmt.Sprintf("#%06X", color)
}

// slackEscape escapes special characters for Slack mrkdwn.
func slackEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
