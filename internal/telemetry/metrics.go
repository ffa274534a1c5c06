// Package telemetry counts how questions get answered: by answer kind,
// intent and latency. Data stays local; it is kept in memory and
// optionally flushed to a SQLite file.
package telemetry

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a histogram bucket for answer latency.
type LatencyBucket string

const (
	BucketLT10ms  LatencyBucket = "lt10ms"
	BucketLT100ms LatencyBucket = "lt100ms"
	BucketLT1s    LatencyBucket = "lt1s"
	BucketLT5s    LatencyBucket = "lt5s"
	BucketGTE5s   LatencyBucket = "gte5s"
)

// LatencyToBucket maps d to its bucket. Direct answers land in the first
// two buckets, generated ones usually in the last two.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < 10*time.Millisecond:
		return BucketLT10ms
	case d < 100*time.Millisecond:
		return BucketLT100ms
	case d < time.Second:
		return BucketLT1s
	case d < 5*time.Second:
		return BucketLT5s
	default:
		return BucketGTE5s
	}
}

// AnswerEvent describes one answered question.
type AnswerEvent struct {
	Question string
	// Kind is the answer kind reported to the client (direct, llm, cached, error).
	Kind string
	// Intent is the classifier subtype, or complex_regulation / complex_unmatched for generated answers.
	Intent    string
	Latency   time.Duration
	Degraded  bool
	Timestamp time.Time
}

// IntentCount is an intent and how often it was asked.
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int64  `json:"count"`
}

// Snapshot is an immutable view of the collected metrics.
type Snapshot struct {
	KindCounts          map[string]int64        `json:"kind_counts"`
	TopIntents          []IntentCount           `json:"top_intents"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	RecentDegraded      []string                `json:"recent_degraded"`
	TotalAnswers        int64                   `json:"total_answers"`
	DegradedCount       int64                   `json:"degraded_count"`
	RepeatCount         int64                   `json:"repeat_count"`
	Since               time.Time               `json:"since"`
}

// RepeatRate is the share of questions asked again while still in the
// recent-question window.
func (s *Snapshot) RepeatRate() float64 {
	if s.TotalAnswers == 0 {
		return 0
	}
	return float64(s.RepeatCount) / float64(s.TotalAnswers)
}

// Store persists flushed metric deltas.
type Store interface {
	SaveKindCounts(date string, counts map[string]int64) error
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error
	UpsertIntentCounts(counts map[string]int64) error
	AddDegradedQuestion(question string, at time.Time) error
	Close() error
}

// Config tunes the collector.
type Config struct {
	TopIntentsCapacity    int
	DegradedCapacity      int
	RecentQuestionsWindow int
	// FlushInterval of 0 disables background flushing.
	FlushInterval time.Duration
}

// DefaultConfig returns the collector defaults.
func DefaultConfig() Config {
	return Config{
		TopIntentsCapacity:    100,
		DegradedCapacity:      100,
		RecentQuestionsWindow: 500,
		FlushInterval:         60 * time.Second,
	}
}

// delta accumulates counts not yet flushed.
type delta struct {
	kinds     map[string]int64
	latencies map[LatencyBucket]int64
	intents   map[string]int64
	degraded  []AnswerEvent
}

func newDelta() delta {
	return delta{
		kinds:     make(map[string]int64),
		latencies: make(map[LatencyBucket]int64),
		intents:   make(map[string]int64),
	}
}

// Metrics collects answer telemetry. Safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	kinds         map[string]int64
	latencies     map[LatencyBucket]int64
	intents       *lru.Cache[string, int64]
	degraded      *CircularBuffer[string]
	recent        *lru.Cache[string, struct{}]
	total         int64
	degradedCount int64
	repeats       int64
	start         time.Time

	pending delta

	store  Store
	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// New creates a collector. A nil store keeps metrics in memory only.
func New(store Store, cfg Config) *Metrics {
	def := DefaultConfig()
	if cfg.TopIntentsCapacity <= 0 {
		cfg.TopIntentsCapacity = def.TopIntentsCapacity
	}
	if cfg.DegradedCapacity <= 0 {
		cfg.DegradedCapacity = def.DegradedCapacity
	}
	if cfg.RecentQuestionsWindow <= 0 {
		cfg.RecentQuestionsWindow = def.RecentQuestionsWindow
	}

	intents, _ := lru.New[string, int64](cfg.TopIntentsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQuestionsWindow)

	m := &Metrics{
		kinds:     make(map[string]int64),
		latencies: make(map[LatencyBucket]int64),
		intents:   intents,
		degraded:  NewCircularBuffer[string](cfg.DegradedCapacity),
		recent:    recent,
		start:     time.Now(),
		pending:   newDelta(),
		store:     store,
		stopCh:    make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.ticker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}
	return m
}

func (m *Metrics) flushLoop() {
	for {
		select {
		case <-m.ticker.C:
			if err := m.Flush(); err != nil {
				slog.Warn("telemetry_flush_failed", slog.String("error", err.Error()))
			}
		case <-m.stopCh:
			return
		}
	}
}

// Record adds one answered question. Nil receivers are ignored so callers
// need no telemetry guard.
func (m *Metrics) Record(e AnswerEvent) {
	if m == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.total++
	m.kinds[e.Kind]++
	m.pending.kinds[e.Kind]++

	bucket := LatencyToBucket(e.Latency)
	m.latencies[bucket]++
	m.pending.latencies[bucket]++

	if e.Intent != "" {
		n, _ := m.intents.Get(e.Intent)
		m.intents.Add(e.Intent, n+1)
		m.pending.intents[e.Intent]++
	}

	if e.Degraded {
		m.degradedCount++
		m.degraded.Add(e.Question)
		m.pending.degraded = append(m.pending.degraded, e)
	}

	key := questionHash(e.Question)
	if m.recent.Contains(key) {
		m.repeats++
	}
	m.recent.Add(key, struct{}{})
}

func questionHash(q string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(q))))
	return hex.EncodeToString(sum[:16])
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var top []IntentCount
	for _, k := range m.intents.Keys() {
		if n, ok := m.intents.Peek(k); ok {
			top = append(top, IntentCount{Intent: k, Count: n})
		}
	}
	slices.SortStableFunc(top, func(a, b IntentCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Intent, b.Intent)
	})

	return &Snapshot{
		KindCounts:          maps.Clone(m.kinds),
		TopIntents:          top,
		LatencyDistribution: maps.Clone(m.latencies),
		RecentDegraded:      m.degraded.Items(),
		TotalAnswers:        m.total,
		DegradedCount:       m.degradedCount,
		RepeatCount:         m.repeats,
		Since:               m.start,
	}
}

// Flush writes the counts gathered since the previous flush. A failed
// flush drops that delta.
func (m *Metrics) Flush() error {
	if m == nil || m.store == nil {
		return nil
	}

	m.mu.Lock()
	d := m.pending
	m.pending = newDelta()
	m.mu.Unlock()

	today := time.Now().Format(time.DateOnly)
	if len(d.kinds) > 0 {
		if err := m.store.SaveKindCounts(today, d.kinds); err != nil {
			return err
		}
	}
	if len(d.latencies) > 0 {
		if err := m.store.SaveLatencyCounts(today, d.latencies); err != nil {
			return err
		}
	}
	if err := m.store.UpsertIntentCounts(d.intents); err != nil {
		return err
	}
	for _, e := range d.degraded {
		if err := m.store.AddDegradedQuestion(e.Question, e.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

// Close stops background flushing, flushes once more and closes the store.
func (m *Metrics) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stopCh)
	}

	err := m.Flush()
	if m.store != nil {
		if cerr := m.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
