package service

import (
	"time"

	"kehila/internal/models"
)

// Reasons an event can refuse one more registrant. They travel verbatim into
// skipped_events entries and API responses, so renaming them is a breaking change.
const (
	ReasonCompleted         = "completed"
	ReasonCancelled         = "cancelled"
	ReasonNotPublished      = "notPublished"
	ReasonPastDate          = "pastDate"
	ReasonMissingDate       = "missingDate"
	ReasonFull              = "full"
	ReasonError             = "error"
	ReasonAlreadyRegistered = "alreadyRegistered"
)

// EvaluateEligibility decides whether the event can accept one more registrant
// right now, given the current count of pending/paid registrations. Returns an
// empty string when eligible, otherwise the refusal reason. It is a pure
// function of its arguments; callers supply the count and the clock.
func EvaluateEligibility(event *models.Event, activeCount int, now time.Time) string {
	switch event.Status {
	case models.EventStatusCompleted:
		return ReasonCompleted
	case models.EventStatusCancelled:
		return ReasonCancelled
	}

	// Unpublishing withdraws the event from registration without cancelling it
	if !event.Published {
		return ReasonNotPublished
	}

	if event.StartsAt == nil {
		return ReasonMissingDate
	}
	if !event.StartsAt.After(now) {
		return ReasonPastDate
	}

	if activeCount >= event.Capacity {
		return ReasonFull
	}

	return ""
}
