package notify

import (
	"context"
	"time"

	"github.com/manav03panchal/medtime/internal/model"
)

// Port is the OS-level notification capability the scheduler registers
// alarms with.
type Port interface {
	// Schedule registers alarmID to fire at fireAt. An existing
	// registration under the same id is replaced atomically.
	Schedule(ctx context.Context, alarmID string, fireAt time.Time, payload model.AlarmPayload) error

	// Cancel removes alarmID. Unknown ids are not an error.
	Cancel(ctx context.Context, alarmID string) error

	// ListScheduled reports every live registration.
	ListScheduled(ctx context.Context) ([]model.ScheduledAlarm, error)
}

// PermissionChecker is implemented by ports that can refuse to deliver.
type PermissionChecker interface {
	PermissionGranted(ctx context.Context) (bool, error)
}

// FiredFunc is told about every alarm a port delivered.
type FiredFunc func(ctx context.Context, alarmID string, firedAt time.Time) error

// Payload data keys set by the scheduler and read by delivery.
const (
	DataReminderID     = "reminder_id"
	DataMedicationName = "medication_name"
	DataDosage         = "dosage"
	DataInstructions   = "instructions"
	DataTimeOfDay      = "time_of_day"
	DataKind           = "kind"
)
