// Package quiethours decides whether a dose slot falls inside the
// configured quiet window.
package quiethours

import (
	"github.com/manav03panchal/medtime/internal/model"
)

// IsSuppressed reports whether tod lies inside qh. Both ends are
// inclusive. A window whose start is after its end wraps midnight.
// A disabled window suppresses nothing.
func IsSuppressed(tod model.TimeOfDay, qh model.QuietHours) bool {
	if !qh.Enabled {
		return false
	}
	if qh.Start > qh.End {
		return tod >= qh.Start || tod <= qh.End
	}
	return tod >= qh.Start && tod <= qh.End
}

// Filter splits times into the slots to register and the suppressed ones.
func Filter(times []model.TimeOfDay, qh model.QuietHours) (allowed, suppressed []model.TimeOfDay) {
	for _, tod := range times {
		if IsSuppressed(tod, qh) {
			suppressed = append(suppressed, tod)
		} else {
			allowed = append(allowed, tod)
		}
	}
	return allowed, suppressed
}
