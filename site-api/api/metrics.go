package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	projectsRoute       = "/api/projects"
	projectsSpanName    = "site-api.projects.list"
	projectsEventName   = "projects.request.metrics"
	projectsEventDomain = "site-api"
	observabilityEvent  = "observability.event"
	tracerName          = "github.com/Romaric250/ticsummit26-sub001/site-api/api"
	attrPrefix          = "ticsummit.projects."
)

type projectsRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	fetchDuration  time.Duration
	likesDuration  time.Duration
	encodeDuration time.Duration
	page           int
	limit          int
	searchProvided bool
	category       string
	returned       int
	hasMore        bool
	totalCount     int
	errorStage     string
}

// newProjectsRequestMetrics starts the request span. The returned context
// carries the span and should replace the request context.
func newProjectsRequestMetrics(ctx context.Context, logger *log.Logger) (*projectsRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, projectsSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &projectsRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *projectsRequestMetrics) ObserveFetch(d time.Duration) {
	if d > 0 {
		m.fetchDuration = d
	}
}

func (m *projectsRequestMetrics) ObserveLikes(d time.Duration) {
	if d > 0 {
		m.likesDuration = d
	}
}

func (m *projectsRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *projectsRequestMetrics) SetQuery(page, limit int, search, category string) {
	m.page = page
	m.limit = limit
	m.searchProvided = search != ""
	m.category = category
}

func (m *projectsRequestMetrics) SetResult(returned int, hasMore bool, total int) {
	if returned < 0 {
		returned = 0
	}
	m.returned = returned
	m.hasMore = hasMore
	m.totalCount = total
}

func (m *projectsRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

func (m *projectsRequestMetrics) attributes(status int, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", projectsRoute),
		attribute.Int("http.status_code", status),
		attribute.Int(attrPrefix+"page", m.page),
		attribute.Int(attrPrefix+"limit", m.limit),
		attribute.Bool(attrPrefix+"search_provided", m.searchProvided),
		attribute.Int(attrPrefix+"returned", m.returned),
		attribute.Bool(attrPrefix+"has_more", m.hasMore),
		attribute.Int(attrPrefix+"total_count", m.totalCount),
		attribute.Float64(attrPrefix+"total_ms", durationToMillis(time.Since(m.start))),
	}
	if m.category != "" {
		attrs = append(attrs, attribute.String(attrPrefix+"category", m.category))
	}
	if m.fetchDuration > 0 {
		attrs = append(attrs, attribute.Float64(attrPrefix+"fetch_ms", durationToMillis(m.fetchDuration)))
	}
	if m.likesDuration > 0 {
		attrs = append(attrs, attribute.Float64(attrPrefix+"likes_ms", durationToMillis(m.likesDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64(attrPrefix+"encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String(attrPrefix+"error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}
	return attrs
}

// Log ends the span and emits one observability event on both the span and the logger.
func (m *projectsRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	attrs := m.attributes(status, err)
	severityText, severityNumber := severityForStatus(status, err)

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", projectsEventName),
			attribute.String("event.domain", projectsEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(eventAttrs...))
		if severityText == "ERROR" {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			if desc == "" {
				desc = "request failed"
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      projectsEventName,
		"event.domain":    projectsEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrMap,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.IsValid() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}

	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEvent)
	case "WARN":
		entry.Warn(observabilityEvent)
	default:
		entry.Info(observabilityEvent)
	}
}

// severityForStatus maps a response to OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError, err != nil && status < http.StatusBadRequest:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	}
	return "INFO", 9
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
