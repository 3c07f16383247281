package model

import (
	"strconv"
	"strings"

	"github.com/manav03panchal/medtime/internal/errors"
)

// ActionKind is the user's response to a delivered alarm.
type ActionKind string

// Action kinds.
const (
	ActionTaken  ActionKind = "taken"
	ActionSnooze ActionKind = "snooze"
	ActionSkip   ActionKind = "skip"
)

// MaxSnoozeMinutes caps a single snooze at one day.
const MaxSnoozeMinutes = 24 * 60

// Action is Taken, Snooze(minutes) or Skip.
type Action struct {
	Kind    ActionKind `json:"action"`
	Minutes int        `json:"minutes,omitempty"`
}

// Taken marks the dose as taken.
func Taken() Action { return Action{Kind: ActionTaken} }

// Skip marks the dose as skipped.
func Skip() Action { return Action{Kind: ActionSkip} }

// Snooze defers the dose by minutes.
func Snooze(minutes int) Action { return Action{Kind: ActionSnooze, Minutes: minutes} }

// ParseAction decodes an action name. minutes is only read for snooze.
func ParseAction(kind string, minutes int) (Action, error) {
	var a Action
	switch ActionKind(strings.ToLower(strings.TrimSpace(kind))) {
	case ActionTaken, "take":
		a = Taken()
	case ActionSkip, "skipped":
		a = Skip()
	case ActionSnooze, "snoozed":
		a = Snooze(minutes)
	default:
		return Action{}, errors.NewUserErrorWithField("action", kind, "unknown action",
			"Use taken, snooze or skip.")
	}
	return a, a.Validate()
}

// Validate rejects out-of-range snoozes.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionTaken, ActionSkip:
		return nil
	case ActionSnooze:
		if a.Minutes < 1 || a.Minutes > MaxSnoozeMinutes {
			return errors.NewUserErrorWithField("minutes", strconv.Itoa(a.Minutes),
				"snooze must be between 1 and 1440 minutes", errors.Suggestions[errors.ErrInvalidDuration])
		}
		return nil
	default:
		return errors.NewUserErrorWithField("action", string(a.Kind), "unknown action", "Use taken, snooze or skip.")
	}
}

// Status maps the action to the adherence status it records.
func (a Action) Status() AdherenceStatus {
	switch a.Kind {
	case ActionTaken:
		return StatusTaken
	case ActionSnooze:
		return StatusSnoozed
	default:
		return StatusSkipped
	}
}

func (a Action) String() string {
	if a.Kind == ActionSnooze {
		return "snooze(" + strconv.Itoa(a.Minutes) + "m)"
	}
	return string(a.Kind)
}
