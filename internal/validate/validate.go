// Package validate checks and cleans user input before it reaches the
// reminder engine or the webhook store.
package validate

import (
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

const (
	// MaxReminderIDLength is the maximum length for a caller-chosen reminder id.
	MaxReminderIDLength = 64
	// MaxURLLength is the maximum length for a URL.
	MaxURLLength = 2048
	// MaxWebhookNameLength is the maximum length for a webhook name.
	MaxWebhookNameLength = 50
)

// reminderIDRegex allows colons: alarm ids are parsed from the right.
var reminderIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:-]*$`)

// ReminderID validates a reminder id.
func ReminderID(id string) error {
	if id == "" {
		return errors.NewUserError("reminder id cannot be empty", "Omit --id to have one generated.")
	}
	if len(id) > MaxReminderIDLength {
		return errors.NewUserErrorWithField("id", id,
			"reminder id too long",
			"Reminder ids must be 64 characters or fewer")
	}
	if !reminderIDRegex.MatchString(id) {
		return errors.NewUserErrorWithField("id", id,
			"invalid reminder id",
			"Ids start with a letter or number and contain only letters, numbers, dots, dashes, underscores or colons")
	}
	if model.IsSnoozeAlarmID(id) {
		return errors.NewUserErrorWithField("id", id,
			"invalid reminder id",
			"Reminder ids cannot contain \":snoozed:\"")
	}
	return nil
}

// WebhookName validates a webhook name.
func WebhookName(name string) error {
	if !model.IsValidWebhookName(name) {
		return errors.NewUserErrorWithField("name", name,
			"invalid webhook name",
			"Names start with a letter or number, use only letters, numbers, dashes or underscores, and are at most 50 characters")
	}
	return nil
}

// Webhook validates a webhook before it is stored.
func Webhook(w *model.Webhook) error {
	if err := WebhookName(w.Name); err != nil {
		return err
	}
	if !model.IsValidWebhookType(w.Type) {
		return errors.NewUserErrorWithField("type", w.Type,
			"unknown webhook type",
			"Use one of: "+strings.Join(model.ValidWebhookTypes(), ", "))
	}
	return URL(w.URL)
}

// URL validates a URL for use as a webhook endpoint.
func URL(rawURL string) error {
	if rawURL == "" {
		return errors.NewUserError("URL cannot be empty", "Provide a valid URL")
	}
	if len(rawURL) > MaxURLLength {
		return errors.NewUserError("URL too long", "URLs must be 2048 characters or fewer")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL format",
			errors.Suggestions[errors.ErrInvalidURL])
	}

	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL scheme",
			"URLs must use https:// (or http:// for localhost)")
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL: missing hostname",
			"Provide a valid URL like https://example.com/webhook")
	}

	isLocalhost := hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"

	if parsed.Scheme == "http" && !isLocalhost {
		return errors.NewUserErrorWithField("url", rawURL,
			"HTTP not allowed for external URLs",
			"Use https:// for security. HTTP is only allowed for localhost.")
	}

	// SSRF guard
	if !isLocalhost {
		if err := checkInternalIP(hostname); err != nil {
			return err
		}
	}

	return nil
}

// checkInternalIP checks if a hostname resolves to an internal IP.
func checkInternalIP(hostname string) error {
	if ip := net.ParseIP(hostname); ip != nil {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Internal IP addresses not allowed",
				"Webhook URLs must point to external services")
		}
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		// Unresolvable now; delivery will report it.
		return nil
	}

	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Hostname resolves to internal IP",
				"Webhook URLs must point to external services")
		}
	}

	return nil
}

var privateRanges = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"fc00::/7",
	"fe80::/10",
	"::1/128",
}

// isInternalIP checks if an IP is in a private/internal range.
func isInternalIP(ip net.IP) bool {
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// NonEmpty validates that a string is not empty.
func NonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewUserError(
			field+" cannot be empty",
			"Provide a value for "+field)
	}
	return nil
}

// InRange validates that an integer is within [min, max].
func InRange(field string, value, min, max int) error {
	if value < min || value > max {
		return errors.NewUserErrorWithField(field, strconv.Itoa(value),
			"value out of range",
			"Must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return nil
}
