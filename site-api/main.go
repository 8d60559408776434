package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Romaric250/ticsummit26-sub001/site-api/api"
	"github.com/Romaric250/ticsummit26-sub001/site-api/storage"
)

type config struct {
	Debug bool `env:"DEBUG"`

	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING" validate:"required"`
	ContentTable            string `env:"CONTENT_TABLE" envDefault:"Content" validate:"required,alphanum"`
	UsersTable              string `env:"USERS_TABLE" envDefault:"Users" validate:"required,alphanum"`
	SettingsTable           string `env:"SETTINGS_TABLE" envDefault:"Settings" validate:"required,alphanum"`
	EventsQueue             string `env:"CONTENT_EVENTS_QUEUE" envDefault:"content-events" validate:"required"`

	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING" validate:"required"`
	CacheTTL              time.Duration `env:"CACHE_TTL" envDefault:"10m" validate:"gte=0"`
	RoleCacheTTL          time.Duration `env:"ROLE_CACHE_TTL" envDefault:"1m" validate:"gte=0"`
	UpdatesChannel        string        `env:"CONTENT_UPDATES_CHANNEL" envDefault:"content-updates" validate:"required"`

	Auth0TestMode bool     `env:"AUTH0_TEST_MODE"`
	LocalAuthMode string   `env:"LOCAL_AUTH_MODE"`
	Auth0Domain   string   `env:"AUTH0_DOMAIN" validate:"required_without_all=Auth0TestMode LocalAuthMode"`
	Auth0Audience string   `env:"AUTH0_AUDIENCE" validate:"required_without_all=Auth0TestMode LocalAuthMode"`
	AdminSubjects []string `env:"ADMIN_SUBJECTS" envSeparator:","`

	AllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimit    float64  `env:"RATE_LIMIT" envDefault:"20" validate:"gt=0"`
	Port         string   `env:"FUNCTIONS_CUSTOMHANDLER_PORT" envDefault:"8080" validate:"required,numeric"`

	Events api.EventSenderConfig `envPrefix:"EVENT_SENDER_"`

	LogJSON bool `env:"LOG_JSON"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newAuth(cfg config) (*api.Auth, error) {
	if cfg.Auth0TestMode || cfg.LocalAuthMode != "" {
		return api.NewAuth(nil, cfg.Auth0Audience, "")
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: time.Hour, RefreshUnknownKID: true})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(jwks, cfg.Auth0Audience, "https://"+cfg.Auth0Domain+"/")
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	logger.SetLevel(log.GetLevel())
	if cfg.LogJSON {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	store, err := storage.New(cfg.StorageConnectionString, cfg.ContentTable, cfg.UsersTable, cfg.SettingsTable, cfg.EventsQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	rc := redis.NewClient(storage.RedisOptions(cfg.RedisConnectionString))
	defer rc.Close()

	auth, err := newAuth(cfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := storage.NewCache(store, rc, cfg.CacheTTL)
	sender := api.NewEventSender(store, logger, cfg.Events)
	defer sender.Close()
	broker := api.NewUpdateBroker()
	go storage.SubscribeUpdates(ctx, logger, rc, cfg.UpdatesChannel, broker.Publish)

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.SonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentEncoding},
	}))
	e.Use(echoprometheus.NewMiddleware("site_api"))
	e.Use(middleware.BodyLimit("64K"))
	e.Use(api.GzipRequestMiddleware())
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics" || c.Path() == "/api/updates"
		},
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit)),
	}))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, api.Deps{
		Content:       cache,
		Settings:      cache,
		Users:         storage.NewUsers(store, rc, cfg.RoleCacheTTL),
		Likes:         storage.NewLikes(rc),
		Events:        sender,
		Auth:          auth,
		Clock:         api.NewClock(),
		Updates:       broker,
		AdminSubjects: cfg.AdminSubjects,
	}, logger)

	logger.WithField("port", cfg.Port).Info("site-api starting")

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}
