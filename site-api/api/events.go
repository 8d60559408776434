package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

// EventSenderConfig sizes the background publisher.
type EventSenderConfig struct {
	Workers int           `env:"WORKERS" envDefault:"4" validate:"gte=1,lte=256"`
	Buffer  int           `env:"BUFFER" envDefault:"1024" validate:"gte=0"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s" validate:"gt=0"`
	Handoff time.Duration `env:"HANDOFF_TIMEOUT" envDefault:"15ms" validate:"gte=0"`
}

// EventSender publishes content events from a small worker pool. When the
// buffer stays full past the handoff timeout the event is published inline.
// Publish failures are logged and never surface to the writer.
type EventSender struct {
	pub EventPublisher
	log *log.Logger
	cfg EventSenderConfig

	mu     sync.RWMutex
	closed bool
	jobs   chan domain.ContentEvent
	wg     sync.WaitGroup
}

// NewEventSender starts cfg.Workers publishing goroutines.
func NewEventSender(pub EventPublisher, logger *log.Logger, cfg EventSenderConfig) *EventSender {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &EventSender{
		pub:  pub,
		log:  logger,
		cfg:  cfg,
		jobs: make(chan domain.ContentEvent, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	logger.Infof("event sender started, workers: %d, buffer: %d, timeout: %v, handoff: %v", cfg.Workers, cfg.Buffer, cfg.Timeout, cfg.Handoff)
	return s
}

func (s *EventSender) worker(id int) {
	defer s.wg.Done()
	for ev := range s.jobs {
		if err := s.publish(ev); err != nil {
			s.log.WithError(err).WithFields(log.Fields{
				"kind":   ev.Kind,
				"id":     ev.ID,
				"type":   ev.Type,
				"worker": id,
			}).Error("publish content event failed")
		}
	}
}

func (s *EventSender) publish(ev domain.ContentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	return s.pub.PublishEvent(ctx, ev)
}

// Send queues ev for publishing.
func (s *EventSender) Send(ev domain.ContentEvent) {
	if s.tryEnqueue(ev) {
		return
	}
	s.log.Warn("event buffer saturated; publishing inline")
	if err := s.publish(ev); err != nil {
		s.log.WithError(err).WithFields(log.Fields{"kind": ev.Kind, "id": ev.ID, "type": ev.Type}).
			Error("publish content event failed")
	}
}

func (s *EventSender) tryEnqueue(ev domain.ContentEvent) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.jobs <- ev:
		return true
	default:
	}
	if s.cfg.Handoff <= 0 {
		return false
	}

	timer := time.NewTimer(s.cfg.Handoff)
	defer timer.Stop()
	select {
	case s.jobs <- ev:
		return true
	case <-timer.C:
		return false
	}
}

// Close drains queued events and stops the workers.
func (s *EventSender) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()
	s.wg.Wait()
}
