// Package stats keeps the pipeline's running counters. Every stage reports
// into one Monitor; the numbers come back out through the periodic log
// line, the /stats endpoint and the terminal UI.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
)

const recentAlertCap = 10

// Monitor is a concurrency-safe counter hub. The zero value is not usable;
// call NewMonitor.
type Monitor struct {
	mu        sync.RWMutex
	startedAt time.Time

	received  int64
	malformed int64
	feedDrops int64

	filtered map[string]int64

	enriched     int64
	lookupErrors int64

	scored        int64
	alertEligible int64

	alerted      int64
	alertFailed  int64
	alertDropped int64

	feedState  string
	reconnects int64

	recent []string
}

// Snapshot is a point-in-time copy of every counter, shaped for JSON.
type Snapshot struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	Received      int64            `json:"received"`
	Malformed     int64            `json:"malformed"`
	FeedDrops     int64            `json:"feed_drops"`
	Filtered      map[string]int64 `json:"filtered"`
	Enriched      int64            `json:"enriched"`
	LookupErrors  int64            `json:"lookup_errors"`
	Scored        int64            `json:"scored"`
	AlertEligible int64            `json:"alert_eligible"`
	Alerted       int64            `json:"alerted"`
	AlertFailed   int64            `json:"alert_failed"`
	AlertDropped  int64            `json:"alert_dropped"`
	FeedState     string           `json:"feed_state"`
	Reconnects    int64            `json:"reconnects"`
	RecentAlerts  []string         `json:"recent_alerts"`
}

func NewMonitor() *Monitor {
	return &Monitor{
		startedAt: time.Now(),
		filtered:  make(map[string]int64),
		feedState: "disconnected",
	}
}

func (m *Monitor) TradeReceived() { m.add(&m.received) }
func (m *Monitor) Malformed()     { m.add(&m.malformed) }
func (m *Monitor) FeedDrop()      { m.add(&m.feedDrops) }
func (m *Monitor) Enriched()      { m.add(&m.enriched) }
func (m *Monitor) LookupError()   { m.add(&m.lookupErrors) }
func (m *Monitor) Scored()        { m.add(&m.scored) }
func (m *Monitor) AlertEligible() { m.add(&m.alertEligible) }
func (m *Monitor) AlertSent()     { m.add(&m.alerted) }
func (m *Monitor) AlertFailed()   { m.add(&m.alertFailed) }
func (m *Monitor) AlertDropped()  { m.add(&m.alertDropped) }
func (m *Monitor) Reconnect()     { m.add(&m.reconnects) }

func (m *Monitor) add(field *int64) {
	m.mu.Lock()
	*field++
	m.mu.Unlock()
}

// Filtered records a discard under the given reason code.
func (m *Monitor) Filtered(reason string) {
	m.mu.Lock()
	m.filtered[reason]++
	m.mu.Unlock()
}

// SetFeedState records the feed connection state gauge.
func (m *Monitor) SetFeedState(state string) {
	m.mu.Lock()
	m.feedState = state
	m.mu.Unlock()
}

// FeedState returns the current feed connection state.
func (m *Monitor) FeedState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.feedState
}

// RecordAlertLine keeps a short ring of recent alert one-liners for the UI.
func (m *Monitor) RecordAlertLine(line string) {
	m.mu.Lock()
	m.recent = append(m.recent, line)
	if len(m.recent) > recentAlertCap {
		m.recent = m.recent[len(m.recent)-recentAlertCap:]
	}
	m.mu.Unlock()
}

// Snapshot copies every counter under the read lock.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := make(map[string]int64, len(m.filtered))
	for reason, n := range m.filtered {
		filtered[reason] = n
	}
	recent := make([]string, len(m.recent))
	copy(recent, m.recent)

	return Snapshot{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Received:      m.received,
		Malformed:     m.malformed,
		FeedDrops:     m.feedDrops,
		Filtered:      filtered,
		Enriched:      m.enriched,
		LookupErrors:  m.lookupErrors,
		Scored:        m.scored,
		AlertEligible: m.alertEligible,
		Alerted:       m.alerted,
		AlertFailed:   m.alertFailed,
		AlertDropped:  m.alertDropped,
		FeedState:     m.feedState,
		Reconnects:    m.reconnects,
		RecentAlerts:  recent,
	}
}

// FilteredTotal sums discards across all reasons.
func (s Snapshot) FilteredTotal() int64 {
	var total int64
	for _, n := range s.Filtered {
		total += n
	}
	return total
}

// Run logs a summary line every interval until the context ends. A final
// line is written on the way out so short runs still leave a trace.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.report()
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func (m *Monitor) report() {
	s := m.Snapshot()
	logger.WithFields(logrus.Fields{
		"uptime":     (time.Duration(s.UptimeSeconds) * time.Second).String(),
		"feed":       s.FeedState,
		"received":   s.Received,
		"malformed":  s.Malformed,
		"filtered":   s.FilteredTotal(),
		"enriched":   s.Enriched,
		"lookup_err": s.LookupErrors,
		"scored":     s.Scored,
		"eligible":   s.AlertEligible,
		"alerted":    s.Alerted,
		"failed":     s.AlertFailed,
		"dropped":    s.AlertDropped,
		"reconnects": s.Reconnects,
	}).Info("pipeline stats")
}
