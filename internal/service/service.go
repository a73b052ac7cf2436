package service

import (
	"kehila/internal/external"
	"kehila/internal/messaging"
	"kehila/internal/repository"
	"kehila/internal/search"
)

type Services struct {
	Events        *EventService
	Bundles       *BundleService
	Registrations *RegistrationService
	Announcements *AnnouncementService
	Profiles      *ProfileService
	Content       *ContentService
}

func NewServices(repos *repository.Repositories, natsClient *messaging.NATSClient, esClient *search.ElasticsearchClient, identityClient *external.IdentityClient, paymentClient *external.PaymentClient) *Services {
	eventService := NewEventService(repos.Events, repos.Registrations, esClient, natsClient)
	bundleService := NewBundleService(repos.Bundles, repos.BundleRegistrations, repos.Events, repos.Registrations, repos.Users, identityClient, paymentClient, natsClient)
	registrationService := NewRegistrationService(repos.Registrations, repos.BundleRegistrations, repos.Events, repos.Users, natsClient)
	announcementService := NewAnnouncementService(repos.Announcements, natsClient)
	profileService := NewProfileService(repos.Users)
	contentService := NewContentService(repos.WhatsAppGroups, repos.MediaAssets, repos.Memorial)

	return &Services{
		Events:        eventService,
		Bundles:       bundleService,
		Registrations: registrationService,
		Announcements: announcementService,
		Profiles:      profileService,
		Content:       contentService,
	}
}
