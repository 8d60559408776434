package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

const streamKeepAlive = 25 * time.Second

// UpdateBroker fans content events out to connected SSE clients. Slow
// clients drop events rather than blocking the publisher.
type UpdateBroker struct {
	mu   sync.Mutex
	subs map[chan domain.ContentEvent]struct{}
}

func NewUpdateBroker() *UpdateBroker {
	return &UpdateBroker{subs: make(map[chan domain.ContentEvent]struct{})}
}

func (b *UpdateBroker) subscribe() chan domain.ContentEvent {
	ch := make(chan domain.ContentEvent, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *UpdateBroker) unsubscribe(ch chan domain.ContentEvent) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Subscribers reports the number of connected clients.
func (b *UpdateBroker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *UpdateBroker) Publish(ev domain.ContentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// streamUpdates serves GET /api/updates as text/event-stream.
func streamUpdates(broker *UpdateBroker) echo.HandlerFunc {
	return func(c echo.Context) error {
		res := c.Response()
		flusher, ok := res.Writer.(http.Flusher)
		if !ok {
			return fail(c, http.StatusInternalServerError, "stream unsupported")
		}
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set(echo.HeaderCacheControl, "no-cache")
		res.Header().Set(echo.HeaderConnection, "keep-alive")
		res.Header().Set("X-Accel-Buffering", "no")
		res.WriteHeader(http.StatusOK)

		ch := broker.subscribe()
		defer broker.unsubscribe(ch)

		if _, err := res.Write([]byte(": connected\n\n")); err != nil {
			return nil
		}
		flusher.Flush()

		ctx := c.Request().Context()
		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-keepAlive.C:
				if _, err := res.Write([]byte(": ping\n\n")); err != nil {
					return nil
				}
			case ev := <-ch:
				data, err := sonic.Marshal(ev)
				if err != nil {
					c.Logger().Error(err)
					continue
				}
				frame := make([]byte, 0, len(data)+24)
				frame = append(frame, "event: content\ndata: "...)
				frame = append(frame, data...)
				frame = append(frame, "\n\n"...)
				if _, err := res.Write(frame); err != nil {
					return nil
				}
			}
			flusher.Flush()
		}
	}
}
