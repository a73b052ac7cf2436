package models

import "time"

// NATS Event Types
const (
	EventBundleRegistrationCompleted = "registration.bundle.completed"
	EventRegistrationCreated         = "registration.created"
	EventRegistrationCancelled       = "registration.cancelled"
	EventPaymentIntentCreated        = "payment.intent.created"
	EventAnnouncementPublished       = "announcement.published"
)

// BundleRegistrationCompletedEvent is emitted after a bundle purchase is fully persisted.
// The notification worker consumes it to send purchaser and admin emails.
type BundleRegistrationCompletedEvent struct {
	BundleRegistrationID int64          `json:"bundle_registration_id"`
	BundleID             int64          `json:"bundle_id"`
	UserID               int64          `json:"user_id"`
	PurchaserName        string         `json:"purchaser_name"`
	PurchaserEmail       string         `json:"purchaser_email"`
	BundleTitle          string         `json:"bundle_title"`
	EventOutcomes        []EventOutcome `json:"event_outcomes"`
	SkippedEvents        []SkippedEvent `json:"skipped_events"`
	Timestamp            time.Time      `json:"timestamp"`
}

// RegistrationCreatedEvent represents a single-event registration
type RegistrationCreatedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	EventID        int64     `json:"event_id"`
	UserID         int64     `json:"user_id"`
	PurchaserName  string    `json:"purchaser_name"`
	PurchaserEmail string    `json:"purchaser_email"`
	EventTitle     string    `json:"event_title"`
	Timestamp      time.Time `json:"timestamp"`
}

// RegistrationCancelledEvent represents a registration cancellation
type RegistrationCancelledEvent struct {
	RegistrationID int64     `json:"registration_id"`
	EventID        int64     `json:"event_id"`
	UserID         int64     `json:"user_id"`
	Reason         string    `json:"reason"`
	Timestamp      time.Time `json:"timestamp"`
}

// PaymentIntentCreatedEvent represents a payment intent opened at the gateway
type PaymentIntentCreatedEvent struct {
	BundleRegistrationID int64     `json:"bundle_registration_id"`
	PaymentIntentID      string    `json:"payment_intent_id"`
	AmountAgorot         int64     `json:"amount_agorot"`
	Timestamp            time.Time `json:"timestamp"`
}

// AnnouncementPublishedEvent triggers the email dispatch of an announcement
type AnnouncementPublishedEvent struct {
	AnnouncementID int64     `json:"announcement_id"`
	Timestamp      time.Time `json:"timestamp"`
}
