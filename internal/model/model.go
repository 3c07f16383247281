// Package model defines the domain types for medtime: medication
// reminders, their recurrence rules, alarm ids, adherence history and
// notification preferences.
package model

// Model is the interface that all prefix-keyed database records implement.
type Model interface {
	// SetKey sets the database key for this model.
	SetKey(key string)
	// GetKey returns the database key for this model.
	GetKey() string
}
