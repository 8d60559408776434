package main

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

type config struct {
	Debug                   bool   `env:"DEBUG"`
	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING" validate:"required"`
	ContentTable            string `env:"CONTENT_TABLE" envDefault:"Content" validate:"required,alphanum"`
	UsersTable              string `env:"USERS_TABLE" envDefault:"Users" validate:"required,alphanum"`
	SettingsTable           string `env:"SETTINGS_TABLE" envDefault:"Settings" validate:"required,alphanum"`
	EventsQueue             string `env:"CONTENT_EVENTS_QUEUE" envDefault:"content-events" validate:"required"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	ctx := context.Background()

	if err := createTables(ctx, cfg.StorageConnectionString, []string{
		cfg.ContentTable,
		cfg.UsersTable,
		cfg.SettingsTable,
	}); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	if err := createQueues(ctx, cfg.StorageConnectionString, []string{cfg.EventsQueue}); err != nil {
		log.Fatalf("create queues: %v", err)
	}

	log.Info("storage init complete")
}

// alreadyExists reports whether err is the service telling us the resource
// was created earlier.
func alreadyExists(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}

func createTables(ctx context.Context, connStr string, names []string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		_, err := svc.NewClient(name).CreateTable(ctx, nil)
		if err != nil && !alreadyExists(err, string(aztables.TableAlreadyExists)) {
			return err
		}
		log.WithField("table", name).Debug("table ready")
	}
	return nil
}

func createQueues(ctx context.Context, connStr string, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
		if err != nil {
			return err
		}
		_, err = q.Create(ctx, nil)
		if err != nil && !alreadyExists(err, "QueueAlreadyExists") {
			return err
		}
		log.WithField("queue", name).Debug("queue ready")
	}
	return nil
}
