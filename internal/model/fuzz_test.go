package model

import "testing"

// Run with: go test ./internal/model -fuzz=FuzzParseAlarmID -fuzztime=30s
func FuzzParseAlarmID(f *testing.F) {
	for _, seed := range []string{
		"met:08:00", "met:08:00:snoozed:1767254400", "a:b:c:23:59", "x:00:00",
		"met:8:00", "met:08:00:snoozed:", "met:08:00:snoozed:abc", ":snoozed:1", "", "::::::",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, id string) {
		ref, err := ParseAlarmID(id)
		if err != nil {
			return
		}
		if !ref.TimeOfDay.Valid() {
			t.Errorf("ParseAlarmID(%q) returned time of day %d", id, ref.TimeOfDay)
		}
		if ref.ReminderID == "" {
			t.Errorf("ParseAlarmID(%q) returned an empty reminder id", id)
		}
	})
}
