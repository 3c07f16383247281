package validate

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

// =============================================================================
// Reminder ID Tests
// =============================================================================

func TestReminderID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"uuid", "0f8fad5b-d9cb-469f-a165-70867728950e", false},
		{"simple", "vitamin-d", false},
		{"with_colon", "care:plan", false},
		{"with_dot", "a.b", false},

		{"empty", "", true},
		{"leading_dash", "-abc", true},
		{"space", "vitamin d", true},
		{"too_long", strings.Repeat("a", MaxReminderIDLength+1), true},
		{"snooze_marker", "a:snoozed:1", true},
		{"snooze_marker_suffix", "care:snoozed:", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ReminderID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// =============================================================================
// Webhook Tests
// =============================================================================

func TestWebhook(t *testing.T) {
	ok := model.NewWebhook("phone", model.WebhookTypeGeneric, "http://localhost:9000/hook")
	require.NoError(t, Webhook(ok))

	badName := model.NewWebhook("my hook", model.WebhookTypeGeneric, "http://localhost/hook")
	assert.ErrorIs(t, Webhook(badName), errors.ErrValidation)

	badType := model.NewWebhook("phone", "pager", "http://localhost/hook")
	err := Webhook(badType)
	require.Error(t, err)
	ue, isUser := errors.AsUserError(err)
	require.True(t, isUser)
	assert.Equal(t, "type", ue.Field)
	assert.Contains(t, ue.Suggestion, "discord")

	badURL := model.NewWebhook("phone", model.WebhookTypeGeneric, "ftp://example.com")
	assert.ErrorIs(t, Webhook(badURL), errors.ErrValidation)
}

// =============================================================================
// URL Tests
// =============================================================================

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		// Valid
		{"https", "https://example.com/webhook", false},
		{"https_with_port", "https://example.com:8080/webhook", false},
		{"localhost_http", "http://localhost/webhook", false},
		{"localhost_127", "http://127.0.0.1/webhook", false},
		{"localhost_ipv6", "http://[::1]/webhook", false},

		// Invalid
		{"empty", "", true},
		{"http_non_localhost", "http://example.com/webhook", true},
		{"ftp_scheme", "ftp://example.com/file", true},
		{"no_scheme", "example.com/webhook", true},
		{"missing_host", "https:///path", true},
		{"too_long", "https://example.com/" + strings.Repeat("a", MaxURLLength), true},

		// Internal IPs
		{"internal_10", "https://10.0.0.1/webhook", true},
		{"internal_172", "https://172.16.0.1/webhook", true},
		{"internal_192", "https://192.168.1.1/webhook", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := URL(tt.url)
			if tt.wantErr {
				assert.Error(t, err, "URL: %s", tt.url)
			} else {
				assert.NoError(t, err, "URL: %s", tt.url)
			}
		})
	}
}

func TestIsInternalIP(t *testing.T) {
	tests := []struct {
		ip       string
		internal bool
	}{
		{"10.1.2.3", true},
		{"172.31.255.255", true},
		{"192.168.0.10", true},
		{"169.254.1.1", true},
		{"fe80::1", true},
		{"8.8.8.8", false},
		{"2606:4700:4700::1111", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.internal, isInternalIP(net.ParseIP(tt.ip)))
		})
	}
}

// =============================================================================
// Generic helpers
// =============================================================================

func TestNonEmpty(t *testing.T) {
	assert.NoError(t, NonEmpty("name", "Metformin"))
	assert.ErrorIs(t, NonEmpty("name", "   "), errors.ErrValidation)
}

func TestInRange(t *testing.T) {
	assert.NoError(t, InRange("minutes", 10, 1, 1440))
	err := InRange("minutes", 2000, 1, 1440)
	require.Error(t, err)
	ue, ok := errors.AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "2000", ue.Value)
	assert.Equal(t, "Must be between 1 and 1440", ue.Suggestion)
}

// =============================================================================
// Sanitize Tests
// =============================================================================

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Metformin", "Metformin"},
		{"trim", "  Metformin  ", "Metformin"},
		{"inner_runs", "500  mg\ttablet", "500 mg tablet"},
		{"newlines", "take with\nfood", "take with food"},
		{"control", "Ibu\x00profen\x07", "Ibuprofen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeText(tt.input))
		})
	}
}

func TestStripControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal", "Hello", "Hello"},
		{"with_newline", "Hello\nWorld", "Hello\nWorld"},
		{"with_tab", "Hello\tWorld", "Hello\tWorld"},
		{"with_control", "Hello\x00World", "HelloWorld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripControlChars(tt.input))
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short", "Hello", 10, "Hello"},
		{"exact", "Hello", 5, "Hello"},
		{"truncate", "Hello World", 8, "Hello..."},
		{"very_short_limit", "Hello", 3, "Hel"},
		{"multibyte", "Paracétamol", 6, "Par..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateString(tt.input, tt.maxLen))
		})
	}
}
