package parser

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/medtime/internal/errors"
)

// ParseError is an input that could not be parsed, with examples of what
// would have been accepted.
type ParseError struct {
	Input      string
	Field      string
	Message    string
	Examples   []string
	Suggestion string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

// Is makes every ParseError match errors.ErrValidation.
func (e *ParseError) Is(target error) bool {
	return target == errors.ErrValidation
}

// FormatWithExamples returns the error message with example inputs.
func (e *ParseError) FormatWithExamples() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Examples) > 0 {
		sb.WriteString("\n\nValid examples:\n")
		for _, ex := range e.Examples {
			sb.WriteString("  - ")
			sb.WriteString(ex)
			sb.WriteString("\n")
		}
	}

	if e.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

// ToUserError converts e to a UserError for the CLI's error renderer.
func (e *ParseError) ToUserError() *errors.UserError {
	suggestion := e.Suggestion
	if suggestion == "" && len(e.Examples) > 0 {
		suggestion = "Try: " + strings.Join(e.Examples[:min(3, len(e.Examples))], ", ")
	}
	return errors.NewUserErrorWithField(e.Field, e.Input, e.Message, suggestion)
}

// Example inputs shown with parse errors.
var (
	DateExamples       = []string{"2026-03-01", "today", "tomorrow", "next monday", "in 2 weeks"}
	TimeOfDayExamples  = []string{"08:00", "8am", "8:30pm", "20:30"}
	RecurrenceExamples = []string{"daily", "weekly:mon,wed,fri", "monthly:15"}
	DurationExamples   = []string{"10m", "15 minutes", "1h", "1h30m", "90"}
)

func newDateError(input string) *ParseError {
	return &ParseError{
		Input:      input,
		Field:      "date",
		Message:    "could not parse date",
		Examples:   DateExamples,
		Suggestion: "Use YYYY-MM-DD or a phrase like 'tomorrow'.",
	}
}

func newTimeOfDayError(input string) *ParseError {
	return &ParseError{
		Input:      input,
		Field:      "time of day",
		Message:    "could not parse time of day",
		Examples:   TimeOfDayExamples,
		Suggestion: "Use 24-hour HH:MM or a clock time like '8am'.",
	}
}

func newRecurrenceError(input, message string) *ParseError {
	return &ParseError{
		Input:    input,
		Field:    "recurrence",
		Message:  message,
		Examples: RecurrenceExamples,
	}
}

func newDurationError(input string) *ParseError {
	return &ParseError{
		Input:      input,
		Field:      "duration",
		Message:    "could not parse duration",
		Examples:   DurationExamples,
		Suggestion: "A bare number is minutes.",
	}
}
