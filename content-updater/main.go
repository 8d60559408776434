package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

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
	CacheTTL              time.Duration `env:"CACHE_TTL" envDefault:"10m" validate:"gt=0"`
	UpdatesChannel        string        `env:"CONTENT_UPDATES_CHANNEL" envDefault:"content-updates" validate:"required"`

	BatchSize         int32         `env:"DEQUEUE_BATCH_SIZE" envDefault:"16" validate:"gte=1,lte=32"`
	VisibilityTimeout time.Duration `env:"VISIBILITY_TIMEOUT" envDefault:"30s" validate:"gte=1s"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"1s" validate:"gt=0"`
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
	logger.Info("content updater starting")

	store, err := storage.New(cfg.StorageConnectionString, cfg.ContentTable, cfg.UsersTable, cfg.SettingsTable, cfg.EventsQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	rc := redis.NewClient(storage.RedisOptions(cfg.RedisConnectionString))
	defer rc.Close()
	cache := storage.NewCache(store, rc, cfg.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := warmup(ctx, cache, time.Now()); err != nil {
		// Snapshots missed here are filled on first read.
		logger.WithError(err).Warn("cache warmup incomplete")
	}

	c := &consumer{
		queue:        store,
		cache:        cache,
		redis:        rc,
		log:          logger,
		channel:      cfg.UpdatesChannel,
		batchSize:    cfg.BatchSize,
		visibility:   cfg.VisibilityTimeout,
		pollInterval: cfg.PollInterval,
	}
	c.run(ctx)
	logger.Info("content updater stopped")
}
