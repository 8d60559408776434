package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Romaric250/ticsummit26-sub001/hall-of-fame/listing"
	"github.com/Romaric250/ticsummit26-sub001/hall-of-fame/ui"
	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

type options struct {
	api      string
	token    string
	search   string
	category string
	pageSize int
	timeout  time.Duration
	logFile  string
	debug    bool
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "hall-of-fame",
		Short: "Browse TIC Summit projects in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.api, "api", envOr("SITE_API_URL", "http://localhost:8080"), "site API base URL")
	f.StringVar(&opts.token, "token", os.Getenv("SITE_API_TOKEN"), "bearer token sent with requests")
	f.StringVar(&opts.search, "search", "", "initial search term")
	f.StringVar(&opts.category, "category", domain.CategoryAll, "initial category")
	f.IntVar(&opts.pageSize, "page-size", domain.DefaultProjectsPageSize, "projects per page")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	f.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of discarding them")
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, opts options) error {
	// The terminal belongs to the UI; logs go to a file or nowhere.
	logger := log.New()
	logger.SetOutput(io.Discard)
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer f.Close()
		logger.SetOutput(f)
	}
	if opts.debug {
		logger.SetLevel(log.DebugLevel)
	}

	client := listing.NewClient(opts.api, opts.token)
	client.HTTP.Timeout = opts.timeout
	loader := listing.New(client, logger, opts.pageSize)
	defer loader.Close()

	model := ui.New(ctx, loader, ui.Options{Search: opts.search, Category: opts.category})
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx)).Run()
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatalf("hall-of-fame: %v", err)
	}
}
