package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func collect(r io.Reader, c *collector) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		c.ingest(scanner.Text())
	}
	return scanner.Err()
}

func writeSummary(path string, s summaryOutput) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := sonic.ConfigDefault.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func newRootCmd() *cobra.Command {
	var out, eventName, eventDomain string
	cmd := &cobra.Command{
		Use:   "request-metrics",
		Short: "Summarize site-api projects request metrics read from JSON logs on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newCollector(eventName, eventDomain)
			if err := collect(cmd.InOrStdin(), c); err != nil {
				return fmt.Errorf("read logs: %w", err)
			}
			s := c.summary()
			if out != "" {
				if err := writeSummary(out, s); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), s.ShortString())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", "", "path to write the aggregated JSON summary")
	f.StringVar(&eventName, "event-name", projectsEventName, "observability event name to collect")
	f.StringVar(&eventDomain, "event-domain", projectsEventDomain, "observability event domain to match")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("request-metrics: %v", err)
	}
}
