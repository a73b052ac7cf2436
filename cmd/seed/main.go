package main

import (
	"context"
	"log"
	"time"

	"kehila/internal/config"
	"kehila/internal/database"
	"kehila/internal/models"
	"kehila/internal/repository"
)

// Seeds a development database with an admin profile, a few events and one
// bundle so the API is usable immediately after `docker compose up`.
func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	repos := repository.New(db)

	admin, err := repos.Users.GetBySubject(ctx, "seed-admin")
	if err != nil {
		log.Fatalf("Failed to check admin profile: %v", err)
	}
	if admin == nil {
		admin = &models.UserProfile{
			Subject: "seed-admin",
			Email:   "admin@kehila.local",
			Name:    "מנהל מערכת",
			Role:    models.RoleAdmin,
			Groups:  []string{models.GroupAll},
		}
		if err := repos.Users.Create(ctx, admin); err != nil {
			log.Fatalf("Failed to create admin profile: %v", err)
		}
		log.Printf("Created admin profile id=%d", admin.ID)
	}

	base := time.Now().AddDate(0, 0, 7)
	titles := []string{"אימון פתיחת עונה", "סדנת הורים", "טורניר קהילתי"}

	var eventIDs []int64
	for i, title := range titles {
		starts := base.AddDate(0, 0, i*7)
		location := "מרכז הקהילה"
		event := &models.Event{
			Title:       title,
			StartsAt:    &starts,
			Location:    &location,
			Capacity:    30,
			PriceAgorot: 5000,
			Published:   true,
			Status:      models.EventStatusActive,
		}
		if err := repos.Events.Create(ctx, event); err != nil {
			log.Fatalf("Failed to create event %q: %v", title, err)
		}
		eventIDs = append(eventIDs, event.ID)
		log.Printf("Created event id=%d title=%q", event.ID, title)
	}

	validUntil := base.AddDate(0, 2, 0)
	bundle := &models.Bundle{
		Title:               "חבילת פתיחת עונה",
		PriceAgorot:         12000,
		ValidUntil:          &validUntil,
		Published:           true,
		Active:              true,
		EventIDs:            eventIDs[:2],
		ReplacementEventIDs: eventIDs[2:],
	}
	if err := repos.Bundles.Create(ctx, bundle); err != nil {
		log.Fatalf("Failed to create bundle: %v", err)
	}
	log.Printf("Created bundle id=%d", bundle.ID)

	log.Println("Seed completed")
}
