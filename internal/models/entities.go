package models

import (
	"time"
)

// Event statuses
const (
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
	EventStatusDraft     = "draft"
)

// Registration statuses
const (
	RegistrationStatusPending   = "pending"
	RegistrationStatusPaid      = "paid"
	RegistrationStatusCancelled = "cancelled"
	RegistrationStatusWaitlist  = "waitlist"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
)

// User roles
const (
	RoleAdmin      = "admin"
	RoleTrainer    = "trainer"
	RoleInstructor = "instructor"
	RoleParent     = "parent"
	RoleStudent    = "student"
)

// GroupAll is the sentinel target group meaning "visible to everyone"
const GroupAll = "ALL"

// UserProfile represents a community member in the system
type UserProfile struct {
	ID        int64     `json:"id" db:"id"`
	Subject   string    `json:"subject" db:"subject"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Role      string    `json:"role" db:"role"`
	Groups    []string  `json:"groups" db:"groups"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event represents a community event
type Event struct {
	ID               int64      `json:"id" db:"id"`
	Title            string     `json:"title" db:"title"`
	Description      *string    `json:"description" db:"description"`
	StartsAt         *time.Time `json:"starts_at" db:"starts_at"`
	Location         *string    `json:"location" db:"location"`
	Capacity         int        `json:"capacity" db:"capacity"`
	PriceAgorot      int64      `json:"price_agorot" db:"price_agorot"`
	Published        bool       `json:"published" db:"published"`
	Status           string     `json:"status" db:"status"`
	Trainers         []string   `json:"trainers" db:"trainers"`
	VisibilityGroups []string   `json:"visibility_groups" db:"visibility_groups"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Bundle represents a fixed-price package of several events sold as one purchase
type Bundle struct {
	ID                  int64      `json:"id" db:"id"`
	Title               string     `json:"title" db:"title"`
	Description         *string    `json:"description" db:"description"`
	PriceAgorot         int64      `json:"price_agorot" db:"price_agorot"`
	ValidUntil          *time.Time `json:"valid_until" db:"valid_until"`
	Published           bool       `json:"published" db:"published"`
	Active              bool       `json:"active" db:"active"`
	EventIDs            []int64    `json:"event_ids"`             // ordered primary events, filled from bundle_events
	ReplacementEventIDs []int64    `json:"replacement_event_ids"` // ordered replacement pool, filled from bundle_events
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// Registration represents one purchaser registered to one event
type Registration struct {
	ID                   int64      `json:"id" db:"id"`
	EventID              int64      `json:"event_id" db:"event_id"`
	UserID               int64      `json:"user_id" db:"user_id"`
	Status               string     `json:"status" db:"status"`
	PaymentStatus        string     `json:"payment_status" db:"payment_status"`
	PurchaserName        string     `json:"purchaser_name" db:"purchaser_name"`
	PurchaserEmail       string     `json:"purchaser_email" db:"purchaser_email"`
	PurchaserPhone       string     `json:"purchaser_phone" db:"purchaser_phone"`
	Pickup               *string    `json:"pickup" db:"pickup"`
	Medical              *string    `json:"medical" db:"medical"`
	Notes                *string    `json:"notes" db:"notes"`
	BundleRegistrationID *int64     `json:"bundle_registration_id" db:"bundle_registration_id"`
	FromBundle           bool       `json:"from_bundle" db:"from_bundle"`
	CheckedInBy          *string    `json:"checked_in_by" db:"checked_in_by"`
	CheckedInAt          *time.Time `json:"checked_in_at" db:"checked_in_at"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// EventOutcome records how one bundle event ended up inside a bundle purchase
type EventOutcome struct {
	EventID        int64  `json:"event_id"`
	RegistrationID int64  `json:"registration_id"`
	Outcome        string `json:"outcome"` // "registered" or "replaced"
}

// SkippedEvent records a bundle event that could not be registered
type SkippedEvent struct {
	EventID int64  `json:"event_id"`
	Reason  string `json:"reason"`
}

// BundleRegistration is the parent record summarizing one bundle purchase
type BundleRegistration struct {
	ID              int64          `json:"id" db:"id"`
	BundleID        int64          `json:"bundle_id" db:"bundle_id"`
	UserID          int64          `json:"user_id" db:"user_id"`
	Status          string         `json:"status" db:"status"`
	PaymentStatus   string         `json:"payment_status" db:"payment_status"`
	EventOutcomes   []EventOutcome `json:"event_outcomes" db:"event_outcomes"`
	SkippedEvents   []SkippedEvent `json:"skipped_events" db:"skipped_events"`
	PurchaserName   string         `json:"purchaser_name" db:"purchaser_name"`
	PurchaserEmail  string         `json:"purchaser_email" db:"purchaser_email"`
	PurchaserPhone  string         `json:"purchaser_phone" db:"purchaser_phone"`
	BundleTitle     string         `json:"bundle_title" db:"bundle_title"`
	PriceAgorot     int64          `json:"price_agorot" db:"price_agorot"`
	Pickup          *string        `json:"pickup" db:"pickup"`
	Medical         *string        `json:"medical" db:"medical"`
	Notes           *string        `json:"notes" db:"notes"`
	PaymentIntentID *string        `json:"payment_intent_id" db:"payment_intent_id"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Announcement represents a community announcement targeted at member groups
type Announcement struct {
	ID              int64      `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	Content         string     `json:"content" db:"content"`
	TargetGroups    []string   `json:"target_groups" db:"target_groups"`
	Type            string     `json:"type" db:"type"`
	Active          bool       `json:"active" db:"active"`
	EmailSent       bool       `json:"email_sent" db:"email_sent"`
	EmailSentAt     *time.Time `json:"email_sent_at" db:"email_sent_at"`
	EmailRecipients int        `json:"email_recipients" db:"email_recipients"`
	EmailFailures   int        `json:"email_failures" db:"email_failures"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// VisibleTo reports whether the announcement targets a user holding the given groups.
// The ALL sentinel makes it unconditionally visible.
func (a *Announcement) VisibleTo(userGroups []string) bool {
	for _, tg := range a.TargetGroups {
		if tg == GroupAll {
			return true
		}
		for _, ug := range userGroups {
			if tg == ug {
				return true
			}
		}
	}
	return false
}

// WhatsAppGroup represents an external WhatsApp chat link, one per group key
type WhatsAppGroup struct {
	ID        int64     `json:"id" db:"id"`
	GroupKey  string    `json:"group_key" db:"group_key"`
	Name      string    `json:"name" db:"name"`
	ChatURL   string    `json:"chat_url" db:"chat_url"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MediaAsset represents an externally hosted media URL managed from the admin dashboard
type MediaAsset struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	URL       string    `json:"url" db:"url"`
	Kind      string    `json:"kind" db:"kind"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MemorialItem represents one entry of the memorial ("Lizchram") section
type MemorialItem struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Years     *string   `json:"years" db:"years"`
	Story     *string   `json:"story" db:"story"`
	ImageURL  *string   `json:"image_url" db:"image_url"`
	Published bool      `json:"published" db:"published"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
