package repository

import (
	"kehila/internal/database"
)

// Repositories aggregates all data access repositories
type Repositories struct {
	Users               *UserRepository
	Events              *EventRepository
	Bundles             *BundleRepository
	Registrations       *RegistrationRepository
	BundleRegistrations *BundleRegistrationRepository
	Announcements       *AnnouncementRepository
	WhatsAppGroups      *WhatsAppGroupRepository
	MediaAssets         *MediaAssetRepository
	Memorial            *MemorialRepository
}

// New creates all repositories over a single database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Users:               NewUserRepository(db),
		Events:              NewEventRepository(db),
		Bundles:             NewBundleRepository(db),
		Registrations:       NewRegistrationRepository(db),
		BundleRegistrations: NewBundleRegistrationRepository(db),
		Announcements:       NewAnnouncementRepository(db),
		WhatsAppGroups:      NewWhatsAppGroupRepository(db),
		MediaAssets:         NewMediaAssetRepository(db),
		Memorial:            NewMemorialRepository(db),
	}
}
