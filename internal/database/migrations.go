package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUserProfilesTable,
		createEventsTable,
		createBundlesTable,
		createBundleEventsTable,
		createBundleRegistrationsTable,
		createRegistrationsTable,
		createAnnouncementsTable,
		createWhatsAppGroupsTable,
		createMediaAssetsTable,
		createMemorialItemsTable,
		createEventsStartsAtIndex,
		createActiveBundleRegistrationIndex,
		createActiveRegistrationIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUserProfilesTable = `
CREATE TABLE IF NOT EXISTS user_profiles (
    id SERIAL PRIMARY KEY,
    subject VARCHAR(128) UNIQUE NOT NULL,
    email VARCHAR(255) NOT NULL,
    name VARCHAR(255) NOT NULL DEFAULT '',
    phone VARCHAR(50) NOT NULL DEFAULT '',
    role VARCHAR(20) NOT NULL DEFAULT 'parent',
    groups TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (role IN ('admin', 'trainer', 'instructor', 'parent', 'student'))
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT,
    starts_at TIMESTAMP,
    location VARCHAR(500),
    capacity INTEGER NOT NULL DEFAULT 0,
    price_agorot BIGINT NOT NULL DEFAULT 0,
    published BOOLEAN NOT NULL DEFAULT FALSE,
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    trainers TEXT[] NOT NULL DEFAULT '{}',
    visibility_groups TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('active', 'completed', 'cancelled', 'draft'))
);`

const createBundlesTable = `
CREATE TABLE IF NOT EXISTS bundles (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT,
    price_agorot BIGINT NOT NULL DEFAULT 0,
    valid_until TIMESTAMP,
    published BOOLEAN NOT NULL DEFAULT FALSE,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createBundleEventsTable = `
CREATE TABLE IF NOT EXISTS bundle_events (
    id SERIAL PRIMARY KEY,
    bundle_id INTEGER NOT NULL REFERENCES bundles(id) ON DELETE CASCADE,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    position INTEGER NOT NULL DEFAULT 0,
    replacement BOOLEAN NOT NULL DEFAULT FALSE,

    UNIQUE(bundle_id, event_id, replacement)
);`

const createBundleRegistrationsTable = `
CREATE TABLE IF NOT EXISTS bundle_registrations (
    id SERIAL PRIMARY KEY,
    bundle_id INTEGER NOT NULL REFERENCES bundles(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES user_profiles(id),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    event_outcomes JSONB NOT NULL DEFAULT '[]',
    skipped_events JSONB NOT NULL DEFAULT '[]',
    purchaser_name VARCHAR(255) NOT NULL DEFAULT '',
    purchaser_email VARCHAR(255) NOT NULL DEFAULT '',
    purchaser_phone VARCHAR(50) NOT NULL DEFAULT '',
    bundle_title VARCHAR(500) NOT NULL DEFAULT '',
    price_agorot BIGINT NOT NULL DEFAULT 0,
    pickup TEXT,
    medical TEXT,
    notes TEXT,
    payment_intent_id VARCHAR(255),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'paid', 'cancelled')),
    CHECK (payment_status IN ('pending', 'paid', 'cancelled'))
);`

const createRegistrationsTable = `
CREATE TABLE IF NOT EXISTS registrations (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES user_profiles(id),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    purchaser_name VARCHAR(255) NOT NULL DEFAULT '',
    purchaser_email VARCHAR(255) NOT NULL DEFAULT '',
    purchaser_phone VARCHAR(50) NOT NULL DEFAULT '',
    pickup TEXT,
    medical TEXT,
    notes TEXT,
    bundle_registration_id INTEGER REFERENCES bundle_registrations(id) ON DELETE CASCADE,
    from_bundle BOOLEAN NOT NULL DEFAULT FALSE,
    checked_in_by VARCHAR(255),
    checked_in_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'paid', 'cancelled', 'waitlist')),
    CHECK (payment_status IN ('pending', 'paid', 'cancelled'))
);`

const createAnnouncementsTable = `
CREATE TABLE IF NOT EXISTS announcements (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    content TEXT NOT NULL,
    target_groups TEXT[] NOT NULL DEFAULT '{ALL}',
    type VARCHAR(20) NOT NULL DEFAULT 'info',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    email_sent BOOLEAN NOT NULL DEFAULT FALSE,
    email_sent_at TIMESTAMP,
    email_recipients INTEGER NOT NULL DEFAULT 0,
    email_failures INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createWhatsAppGroupsTable = `
CREATE TABLE IF NOT EXISTS whatsapp_groups (
    id SERIAL PRIMARY KEY,
    group_key VARCHAR(100) UNIQUE NOT NULL,
    name VARCHAR(255) NOT NULL,
    chat_url TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createMediaAssetsTable = `
CREATE TABLE IF NOT EXISTS media_assets (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    url TEXT NOT NULL,
    kind VARCHAR(50) NOT NULL DEFAULT 'image',
    position INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createMemorialItemsTable = `
CREATE TABLE IF NOT EXISTS memorial_items (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    years VARCHAR(100),
    story TEXT,
    image_url TEXT,
    published BOOLEAN NOT NULL DEFAULT FALSE,
    position INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createEventsStartsAtIndex = `
CREATE INDEX IF NOT EXISTS events_starts_at_idx
ON events (starts_at);`

// Storage-enforced uniqueness: at most one active bundle registration per
// (bundle, purchaser). Concurrent duplicates surface as unique violations.
const createActiveBundleRegistrationIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS bundle_registrations_active_uniq
ON bundle_registrations (bundle_id, user_id)
WHERE status IN ('pending', 'paid');`

// At most one non-cancelled registration per (event, purchaser).
const createActiveRegistrationIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS registrations_active_uniq
ON registrations (event_id, user_id)
WHERE status <> 'cancelled';`
