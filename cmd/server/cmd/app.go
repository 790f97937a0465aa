package cmd

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iliyamo/crusade-registration/internal/config"
	"github.com/iliyamo/crusade-registration/internal/database"
	"github.com/iliyamo/crusade-registration/internal/email"
	"github.com/iliyamo/crusade-registration/internal/feed"
	"github.com/iliyamo/crusade-registration/internal/handler"
	"github.com/iliyamo/crusade-registration/internal/kingschat"
	"github.com/iliyamo/crusade-registration/internal/middleware"
	"github.com/iliyamo/crusade-registration/internal/payment"
	"github.com/iliyamo/crusade-registration/internal/queue"
	"github.com/iliyamo/crusade-registration/internal/repository"
	"github.com/iliyamo/crusade-registration/internal/router"
	"github.com/iliyamo/crusade-registration/internal/service"
	"github.com/iliyamo/crusade-registration/internal/utils"
)

// feedFetchInterval spaces out upstream feed requests when many cache
// misses arrive at once.
const feedFetchInterval = time.Second

// app holds the long-lived dependencies shared by the subcommands.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	db     *sql.DB
	redis  *redis.Client
	mailer *email.Service
	admin  *service.Admin
}

// newApp opens the database and Redis.  Redis is optional: without it the
// limiter falls back to in-process buckets and caching is skipped.
func newApp(cfg config.Config, logger zerolog.Logger) (*app, error) {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; continuing without it")
	}
	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("email service: %w", err)
	}

	a := &app{cfg: cfg, log: logger, db: db, redis: rdb, mailer: mailer}
	a.admin = &service.Admin{
		Admins:      repository.NewAdminRepo(db),
		Users:       repository.NewUserRepo(db),
		Events:      repository.NewEventRepo(db),
		Tickets:     repository.NewTicketRepo(db),
		Testimonies: repository.NewTestimonyRepo(db),
		Categories:  repository.NewCategoryRepo(db),
		BcryptCost:  cfg.BcryptCost,
		Log:         logger,
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.db.Close()
}

// feedSource builds the external crusade feed with the configured cache.
func (a *app) feedSource() *feed.Source {
	client := feed.NewClient(a.cfg.Feed.URL,
		feed.WithTimeout(a.cfg.Feed.Timeout),
		feed.WithRateLimiter(rate.NewLimiter(rate.Every(feedFetchInterval), 1)),
	)
	var cache feed.Cache = feed.NewMemoryCache()
	if a.cfg.Feed.Cache == "redis" {
		if a.redis != nil {
			cache = feed.NewRedisCache(a.redis, feed.DefaultRedisKey)
		} else {
			a.log.Warn().Msg("FEED_CACHE=redis but redis is unavailable; using memory cache")
		}
	}
	return feed.NewSource(client, cache,
		feed.WithTTL(a.cfg.Feed.TTL),
		feed.WithLogger(a.log),
	)
}

// server assembles repositories, services, handlers and routes.
func (a *app) server() *echo.Echo {
	cfg, db, logger := a.cfg, a.db, a.log

	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	staff := repository.NewStaffRepo(db)
	testimonies := repository.NewTestimonyRepo(db)
	categories := repository.NewCategoryRepo(db)
	notifications := repository.NewNotificationRepo(db)
	resets := repository.NewResetTokenRepo(db)

	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL, cfg.TokenRefreshWindow)
	notifier := service.NewNotifier(notifications, logger)
	source := a.feedSource()

	var publisher service.TicketPublisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL)
	}

	catalog := &service.Catalog{Events: events, Feed: source, Tickets: tickets, Staff: staff, Notifier: notifier}
	accounts := &service.Accounts{
		Users:       users,
		Resets:      resets,
		Tickets:     tickets,
		Testimonies: testimonies,
		Tokens:      tokens,
		Mailer:      a.mailer,
		KingsChat:   kingschat.NewClient(cfg.KingsChatAPIURL),
		Notifier:    notifier,
		BcryptCost:  cfg.BcryptCost,
		AppURL:      cfg.AppURL,
		Log:         logger,
	}
	registrar := &service.Registrar{Catalog: catalog, Tickets: tickets, Notifier: notifier, Publisher: publisher, Log: logger}
	staffSvc := &service.Staff{Events: events, Staff: staff, Tickets: tickets, Users: users, Notifier: notifier}
	checkIn := &service.CheckIn{Tickets: tickets, Events: events, Staff: staff, Users: users}
	ticketSvc := &service.Tickets{Tickets: tickets, Users: users, Catalog: catalog}
	testimonySvc := &service.Testimonies{Store: testimonies, Categories: categories, Feed: source, Notifier: notifier}
	categorySvc := &service.Categories{Store: categories}
	donations := &service.Donations{Gateway: payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripePublishableKey, 0)}

	secure := !cfg.IsDev()
	sessions := middleware.NewAdminSessions(cfg.AdminSessionSecret, secure)
	rl := config.LoadRateLimitConfig()
	guards := router.Guards{
		RequireUser:  middleware.Authenticate(tokens, users, middleware.Required, logger),
		OptionalUser: middleware.Authenticate(tokens, users, middleware.Optional, logger),
		Limiter:      middleware.NewTokenBucket(rl, a.redis, "api", logger),
		AuthLimiter:  middleware.NewTokenBucket(rl.WithCapacity(rl.AuthCapacity, "auth"), a.redis, "auth", logger),
		Cache:        middleware.NewRedisCache(config.LoadCacheConfig(), a.redis, logger),
		RequireAdmin: sessions.RequireAdmin(),
		CSRF:         middleware.CSRF([]byte(cfg.CSRFKey), secure),
	}
	handlers := router.Handlers{
		Health:        &handler.HealthHandler{DB: db, Redis: a.redis},
		Auth:          handler.NewAuthHandler(accounts, cfg.AppScheme, cfg.IsDev()),
		Events:        handler.NewEventHandler(catalog, registrar, staffSvc),
		User:          handler.NewUserHandler(accounts, ticketSvc, checkIn, catalog),
		Testimonies:   handler.NewTestimonyHandler(testimonySvc, categorySvc),
		Notifications: handler.NewNotificationHandler(notifier),
		Donations:     handler.NewDonationHandler(donations),
		Admin: &handler.AdminHandler{
			Sessions:    sessions,
			Admin:       a.admin,
			Catalog:     catalog,
			Testimonies: testimonySvc,
			Categories:  categorySvc,
		},
	}

	e := echo.New()
	router.Setup(e, logger)
	router.RegisterAll(e, handlers, guards)
	return e
}
