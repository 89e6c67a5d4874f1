package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/regulynx/compliance-chat/internal/api/handler"
	customMiddleware "github.com/regulynx/compliance-chat/internal/api/middleware"
	"github.com/regulynx/compliance-chat/internal/bot"
	"github.com/regulynx/compliance-chat/internal/bot/botpress"
	"github.com/regulynx/compliance-chat/internal/bot/ollama"
	"github.com/regulynx/compliance-chat/internal/bot/openai"
	"github.com/regulynx/compliance-chat/internal/config"
	"github.com/regulynx/compliance-chat/internal/importer"
	"github.com/regulynx/compliance-chat/internal/mailer"
	"github.com/regulynx/compliance-chat/internal/repository/postgres"
	"github.com/regulynx/compliance-chat/internal/repository/redis"
	"github.com/regulynx/compliance-chat/internal/service"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	db *postgres.DB,
	redisClient *redis.Client,
	actsRunner, updatesRunner *importer.Runner,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	threadRepo := postgres.NewThreadRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	actRepo := postgres.NewActRepository(db)
	updateRepo := postgres.NewMonthlyUpdateRepository(db)
	widgetRepo := postgres.NewWidgetConfigRepository(db)
	leadRepo := postgres.NewLeadRepository(db)

	historyCache := redis.NewHistoryCache(redisClient)

	// Initialize services
	actsService := service.NewActsService(actRepo)
	updatesService := service.NewUpdatesService(updateRepo)
	widgetService := service.NewWidgetService(widgetRepo)
	leadService := service.NewLeadService(leadRepo, mailer.NewMailer(cfg.Mail))

	// Initialize bot providers
	log.Info().Str("default", cfg.Bot.DefaultProvider).Msg("Initializing bot providers")

	openaiProvider := openai.NewProvider(cfg.Bot.OpenAI)
	classifier := service.NewClassificationService(openaiProvider, cfg.Classifier.MinConfidence)

	registry := bot.NewRegistry(cfg.Bot.DefaultProvider)
	registry.Register(botpress.NewProvider(cfg.Bot.Botpress, actsService, updatesService, classifier))
	registry.Register(ollama.NewProvider(cfg.Bot.Ollama))
	registry.Register(openaiProvider)

	chatService := service.NewChatService(registry, userRepo, sessionRepo, threadRepo, messageRepo, historyCache)

	// Initialize handlers
	chatHandler := handler.NewChatHandler(chatService)
	actsHandler := handler.NewActsHandler(actsService, actsRunner, importer.ActsUpsertProcessor(actRepo))
	updatesHandler := handler.NewUpdatesHandler(updatesService, updatesRunner, cfg.Import.UpdatesFolder)
	widgetHandler := handler.NewWidgetHandler(widgetService)
	leadHandler := handler.NewLeadHandler(leadService)

	authMiddleware := customMiddleware.NewAuthMiddleware(widgetService, cfg.Auth.APIKeys)

	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db, redisClient))

		// Widget validation (public: the widget has no key yet)
		r.Post("/widget/validate", widgetHandler.Validate)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/chat", chatHandler.Chat)
			r.Put("/users", chatHandler.UpdateUser)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", chatHandler.ListSessions)
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/threads", chatHandler.ListThreads)
					r.Get("/threads/{threadID}/messages", chatHandler.ListMessages)
				})
			})

			r.Route("/acts", func(r chi.Router) {
				r.Get("/", actsHandler.List)
				r.Get("/filter-options", actsHandler.FilterOptions)
				r.Post("/import", actsHandler.Import)
				r.Get("/import/status", actsHandler.ImportStatus)
				r.Get("/{actID}", actsHandler.Get)
			})

			r.Route("/monthly-updates", func(r chi.Router) {
				r.Get("/", updatesHandler.List)
				r.Get("/recent", updatesHandler.Recent)
				r.Post("/import", updatesHandler.Import)
				r.Get("/import/status", updatesHandler.ImportStatus)
			})

			r.Route("/leads", func(r chi.Router) {
				r.Post("/", leadHandler.Create)
				r.Get("/", leadHandler.List)
			})
		})
	})

	return r
}
