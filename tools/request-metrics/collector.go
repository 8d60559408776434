package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	projectsEventName   = "projects.request.metrics"
	projectsEventDomain = "site-api"

	attrPrefix       = "ticsummit.projects."
	attrStatusCode   = "http.status_code"
	attrTotalMillis  = attrPrefix + "total_ms"
	attrFetchMillis  = attrPrefix + "fetch_ms"
	attrLikesMillis  = attrPrefix + "likes_ms"
	attrEncodeMillis = attrPrefix + "encode_ms"
	attrReturned     = attrPrefix + "returned"
	attrHasMore      = attrPrefix + "has_more"
	attrSearch       = attrPrefix + "search_provided"
	attrCategory     = attrPrefix + "category"
	attrErrorStage   = attrPrefix + "error_stage"
)

// logRecord is one JSON line written by site-api with LOG_JSON set.
type logRecord struct {
	EventName    string         `json:"event.name"`
	EventDomain  string         `json:"event.domain"`
	SeverityText string         `json:"severity_text"`
	Attributes   map[string]any `json:"attributes"`
}

type numericStats struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
}

func newNumericStats() *numericStats {
	return &numericStats{Min: math.MaxFloat64}
}

func (n *numericStats) add(v float64) {
	n.Count++
	n.Sum += v
	n.Min = min(n.Min, v)
	n.Max = max(n.Max, v)
}

func (n *numericStats) summary() numericSummary {
	if n == nil || n.Count == 0 {
		return numericSummary{}
	}
	return numericSummary{Count: n.Count, Min: n.Min, Max: n.Max, Avg: n.Sum / float64(n.Count)}
}

type numericSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

type boolCounts struct {
	True  int `json:"true"`
	False int `json:"false"`
}

func (b *boolCounts) add(v bool) {
	if v {
		b.True++
	} else {
		b.False++
	}
}

type summaryOutput struct {
	EventName      string                    `json:"event_name"`
	EventDomain    string                    `json:"event_domain"`
	TotalEvents    int                       `json:"total_events"`
	SeverityCounts map[string]int            `json:"severity_counts"`
	StatusCounts   map[string]int            `json:"status_counts"`
	DurationMs     map[string]numericSummary `json:"duration_ms"`
	Returned       numericSummary            `json:"projects_returned"`
	HasMore        boolCounts                `json:"has_more"`
	Search         boolCounts                `json:"search_provided"`
	Categories     map[string]int            `json:"categories,omitempty"`
	ErrorStages    map[string]int            `json:"error_stages,omitempty"`
	SkippedLines   int                       `json:"skipped_lines"`
}

type collector struct {
	eventName   string
	eventDomain string

	count      int
	severity   map[string]int
	status     map[string]int
	durations  map[string]*numericStats
	returned   *numericStats
	hasMore    boolCounts
	search     boolCounts
	categories map[string]int
	stages     map[string]int
	skipped    int
}

func newCollector(eventName, eventDomain string) *collector {
	return &collector{
		eventName:   eventName,
		eventDomain: eventDomain,
		severity:    make(map[string]int),
		status:      make(map[string]int),
		durations:   make(map[string]*numericStats),
		returned:    newNumericStats(),
		categories:  make(map[string]int),
		stages:      make(map[string]int),
	}
}

// ingest consumes one log line. Lines prefixed by a container name and a pipe,
// as docker compose prints them, are accepted too.
func (c *collector) ingest(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if pipe := strings.Index(trimmed, "|"); pipe >= 0 && !strings.HasPrefix(trimmed, "{") {
		trimmed = strings.TrimSpace(trimmed[pipe+1:])
	}

	var rec logRecord
	if err := sonic.UnmarshalString(trimmed, &rec); err != nil {
		c.skipped++
		return
	}
	if rec.EventName != c.eventName {
		return
	}
	if c.eventDomain != "" && rec.EventDomain != c.eventDomain {
		return
	}
	c.add(rec)
}

func (c *collector) add(rec logRecord) {
	c.count++
	severity := strings.ToUpper(strings.TrimSpace(rec.SeverityText))
	if severity == "" {
		severity = "UNSPECIFIED"
	}
	c.severity[severity]++

	attrs := rec.Attributes
	if v, ok := asFloat(attrs[attrStatusCode]); ok {
		c.status[strconv.Itoa(int(v))]++
	}
	for key, attr := range map[string]string{
		"total":  attrTotalMillis,
		"fetch":  attrFetchMillis,
		"likes":  attrLikesMillis,
		"encode": attrEncodeMillis,
	} {
		v, ok := asFloat(attrs[attr])
		if !ok {
			continue
		}
		stat, exists := c.durations[key]
		if !exists {
			stat = newNumericStats()
			c.durations[key] = stat
		}
		stat.add(v)
	}
	if v, ok := asFloat(attrs[attrReturned]); ok {
		c.returned.add(v)
	}
	if v, ok := attrs[attrHasMore].(bool); ok {
		c.hasMore.add(v)
	}
	if v, ok := attrs[attrSearch].(bool); ok {
		c.search.add(v)
	}
	if v, ok := attrs[attrCategory].(string); ok && v != "" {
		c.categories[v]++
	}
	if v, ok := attrs[attrErrorStage].(string); ok && v != "" {
		c.stages[v]++
	}
}

func (c *collector) summary() summaryOutput {
	durations := make(map[string]numericSummary, len(c.durations))
	for k, v := range c.durations {
		durations[k] = v.summary()
	}
	return summaryOutput{
		EventName:      c.eventName,
		EventDomain:    c.eventDomain,
		TotalEvents:    c.count,
		SeverityCounts: c.severity,
		StatusCounts:   c.status,
		DurationMs:     durations,
		Returned:       c.returned.summary(),
		HasMore:        c.hasMore,
		Search:         c.search,
		Categories:     nonEmpty(c.categories),
		ErrorStages:    nonEmpty(c.stages),
		SkippedLines:   c.skipped,
	}
}

func nonEmpty(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	return m
}

// ShortString is the one-line digest printed after a run.
func (s summaryOutput) ShortString() string {
	total := s.DurationMs["total"]
	return strings.Join([]string{
		"event=" + s.EventName,
		"total=" + strconv.Itoa(s.TotalEvents),
		"info=" + strconv.Itoa(s.SeverityCounts["INFO"]),
		"warn=" + strconv.Itoa(s.SeverityCounts["WARN"]),
		"error=" + strconv.Itoa(s.SeverityCounts["ERROR"]),
		"avg_total_ms=" + formatFloat(total.Avg),
		"max_total_ms=" + formatFloat(total.Max),
	}, " ")
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
