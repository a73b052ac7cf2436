package service

import (
	"testing"
	"time"

	"kehila/internal/models"

	"github.com/stretchr/testify/assert"
)

func eventAt(status string, startsAt *time.Time, capacity int) *models.Event {
	return &models.Event{
		ID:        1,
		Title:     "אימון שבועי",
		Status:    status,
		StartsAt:  startsAt,
		Capacity:  capacity,
		Published: true,
	}
}

func TestEvaluateEligibility_CompletedAndCancelled(t *testing.T) {
	now := time.Now()
	future := now.Add(48 * time.Hour)

	// Status wins over everything else, even with free capacity
	assert.Equal(t, ReasonCompleted, EvaluateEligibility(eventAt(models.EventStatusCompleted, &future, 100), 0, now))
	assert.Equal(t, ReasonCancelled, EvaluateEligibility(eventAt(models.EventStatusCancelled, &future, 100), 0, now))
}

func TestEvaluateEligibility_NotPublished(t *testing.T) {
	now := time.Now()
	future := now.Add(48 * time.Hour)

	// An unpublished event is withdrawn from registration even with free spots
	event := eventAt(models.EventStatusActive, &future, 100)
	event.Published = false
	assert.Equal(t, ReasonNotPublished, EvaluateEligibility(event, 0, now))

	// Cancelled status still wins over the published flag
	cancelled := eventAt(models.EventStatusCancelled, &future, 100)
	cancelled.Published = false
	assert.Equal(t, ReasonCancelled, EvaluateEligibility(cancelled, 0, now))
}

func TestEvaluateEligibility_MissingDate(t *testing.T) {
	now := time.Now()
	assert.Equal(t, ReasonMissingDate, EvaluateEligibility(eventAt(models.EventStatusActive, nil, 10), 0, now))
}

func TestEvaluateEligibility_PastDate(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	assert.Equal(t, ReasonPastDate, EvaluateEligibility(eventAt(models.EventStatusActive, &past, 10), 0, now))

	// An event starting exactly now is no longer in the future
	assert.Equal(t, ReasonPastDate, EvaluateEligibility(eventAt(models.EventStatusActive, &now, 10), 0, now))
}

func TestEvaluateEligibility_Capacity(t *testing.T) {
	now := time.Now()
	future := now.Add(48 * time.Hour)

	// One free spot left
	assert.Equal(t, "", EvaluateEligibility(eventAt(models.EventStatusActive, &future, 10), 9, now))

	// Exactly at capacity
	assert.Equal(t, ReasonFull, EvaluateEligibility(eventAt(models.EventStatusActive, &future, 10), 10, now))

	// Zero capacity never accepts anyone
	assert.Equal(t, ReasonFull, EvaluateEligibility(eventAt(models.EventStatusActive, &future, 0), 0, now))
}

func TestEvaluateEligibility_Eligible(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)

	assert.Equal(t, "", EvaluateEligibility(eventAt(models.EventStatusActive, &future, 5), 0, now))
}
