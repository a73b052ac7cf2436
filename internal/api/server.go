package api

import (
	"fmt"
	"log"
	"net/http"

	"kehila/internal/cache"
	"kehila/internal/config"
	"kehila/internal/database"
	"kehila/internal/external"
	"kehila/internal/handlers"
	"kehila/internal/messaging"
	"kehila/internal/metrics"
	"kehila/internal/middleware"
	"kehila/internal/repository"
	"kehila/internal/search"
	"kehila/internal/service"

	"github.com/gin-gonic/gin"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	es       *search.ElasticsearchClient
	services *service.Services
	repos    *repository.Repositories
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	// Устанавливаем режим Gin
	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Подключаемся к NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	// Кеш опционален: без него запросы просто идут мимо кеша
	valkeyClient, err := cache.NewValkeyClient(cfg.Valkey)
	if err != nil {
		log.Printf("Valkey unavailable, continuing without cache: %v", err)
		valkeyClient = nil
	}

	// Elasticsearch опционален: без него поиск работает через PostgreSQL
	var esClient *search.ElasticsearchClient
	if cfg.Elasticsearch.Enabled {
		esClient, err = search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			log.Printf("Elasticsearch unavailable, continuing with database search: %v", err)
			esClient = nil
		}
	}

	// Создаем клиенты внешних сервисов
	identityClient := external.NewIdentityClient(cfg.Identity)
	paymentClient := external.NewPaymentClient(cfg.Payment)
	emailClient := external.NewEmailClient(cfg.Email)

	// Создаем репозитории и сервисы
	repos := repository.New(db)
	services := service.NewServices(repos, natsClient, esClient, identityClient, paymentClient)

	// Создаем роутер
	router := gin.New()

	// Применяем middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(metrics.HTTPMiddleware())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		es:       esClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes(identityClient, emailClient)

	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes(identityClient *external.IdentityClient, emailClient *external.EmailClient) {
	h := handlers.NewHandlers(s.services, s.valkey, emailClient)

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", metrics.Handler())

	api := s.router.Group("/api")
	{
		// Публичные роуты: просмотр событий, пакетов и мемориального раздела
		api.GET("/events", h.ListEvents)
		api.GET("/events/:id", h.GetEvent)
		api.GET("/bundles", h.ListBundles)
		api.GET("/bundles/:id", h.GetBundle)
		api.GET("/memorial", h.ListMemorial)

		// Покупка пакета: токен передается в теле запроса
		api.POST("/bundles/register", h.RegisterBundle)

		// Роуты, требующие Bearer токен
		auth := api.Group("")
		auth.Use(middleware.TokenAuth(identityClient, s.repos.Users, s.valkey))
		{
			auth.POST("/profile/bootstrap", h.BootstrapProfile)

			// Роуты, требующие созданный профиль
			member := auth.Group("")
			member.Use(middleware.RequireProfile())
			{
				member.GET("/profile", h.GetProfile)
				member.POST("/events/:id/register", h.RegisterEvent)
				member.GET("/registrations", h.ListRegistrations)
				member.PATCH("/registrations/:id/cancel", h.CancelRegistration)
				member.GET("/announcements", h.ListAnnouncements)
				member.GET("/whatsapp-groups", h.ListWhatsAppGroups)
			}

			// Административные роуты
			admin := auth.Group("/admin")
			admin.Use(middleware.RequireProfile(), middleware.RequireAdmin(s.repos.Users))
			{
				admin.POST("/events", h.CreateEvent)
				admin.PUT("/events/:id", h.UpdateEvent)
				admin.DELETE("/events/:id", h.DeleteEvent)
				admin.GET("/events/:id/analytics", h.EventAnalytics)

				admin.GET("/bundles", h.ListAllBundles)
				admin.POST("/bundles", h.CreateBundle)
				admin.PUT("/bundles/:id", h.UpdateBundle)
				admin.DELETE("/bundles/:id", h.DeleteBundle)
				admin.PATCH("/bundle-registrations/:id/cancel", h.CancelBundleRegistration)

				admin.GET("/users", h.ListUsers)
				admin.PATCH("/users/:id/role", h.UpdateUserRole)
				admin.PATCH("/users/:id/groups", h.UpdateUserGroups)
				admin.GET("/trainers", h.ListTrainers)

				admin.GET("/announcements", h.ListAllAnnouncements)
				admin.POST("/announcements", h.CreateAnnouncement)
				admin.PUT("/announcements/:id", h.UpdateAnnouncement)
				admin.DELETE("/announcements/:id", h.DeleteAnnouncement)
				admin.POST("/announcements/:id/send", h.SendAnnouncement)

				admin.GET("/whatsapp-groups", h.ListAllWhatsAppGroups)
				admin.POST("/whatsapp-groups", h.UpsertWhatsAppGroup)
				admin.DELETE("/whatsapp-groups/:id", h.DeleteWhatsAppGroup)

				admin.GET("/media", h.ListMediaAssets)
				admin.POST("/media", h.CreateMediaAsset)
				admin.DELETE("/media/:id", h.DeleteMediaAsset)

				admin.GET("/memorial", h.ListAllMemorial)
				admin.POST("/memorial", h.CreateMemorialItem)
				admin.PUT("/memorial/:id", h.UpdateMemorialItem)
				admin.DELETE("/memorial/:id", h.DeleteMemorialItem)

				admin.POST("/email/test", h.SendTestEmail)
			}
		}
	}
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "kehila-api",
		"version": "1.0.0",
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			log.Printf("Error closing Valkey connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
