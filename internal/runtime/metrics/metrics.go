// Package metrics records ingestion statistics as Prometheus collectors and
// keeps a per-topic snapshot for logs and tests.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
)

const namespace = "avroflow"

// Record outcomes used as the "outcome" label.
const (
	OutcomeProcessed   = "processed"
	OutcomePassThrough = "passed_through"
)

// Recorder is what the ingestion loop reports to.
type Recorder interface {
	MessagesReceived(topic string, n int)
	BatchSkipped(topic string, size int)
	RecordDone(topic string, outcome string, took time.Duration)
	RecordFailed(topic string, err error, took time.Duration)
	RenderFailed(topic string)
}

// TopicStats is the running total for one topic.
type TopicStats struct {
	MessagesReceived uint64            `json:"messages_received"`
	Batches          uint64            `json:"batches"`
	BatchesSkipped   uint64            `json:"batches_skipped"`
	Records          map[string]uint64 `json:"records"`
	RenderFailures   uint64            `json:"render_failures"`
	LastUpdatedAt    time.Time         `json:"last_updated_at"`
}

// IngestMetrics implements Recorder on top of Prometheus collectors.
type IngestMetrics struct {
	mu     sync.RWMutex
	topics map[string]*TopicStats

	messagesTotal  *prometheus.CounterVec
	batchesTotal   *prometheus.CounterVec
	batchesSkipped *prometheus.CounterVec
	recordsTotal   *prometheus.CounterVec
	renderFailures *prometheus.CounterVec
	recordSeconds  *prometheus.HistogramVec
	batchSizeHist  *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// New creates the collectors. A nil registerer means the default one.
func New(registerer prometheus.Registerer) *IngestMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &IngestMetrics{
		topics:         make(map[string]*TopicStats),
		registerer:     registerer,
		messagesTotal:  newCounterVec("messages_received_total", "Messages polled from the topic", []string{"topic"}),
		batchesTotal:   newCounterVec("batches_total", "Batches polled from the topic", []string{"topic"}),
		batchesSkipped: newCounterVec("batches_skipped_total", "Batches dropped because a message failed to decode", []string{"topic"}),
		recordsTotal:   newCounterVec("records_total", "Records handled by the pipeline by outcome", []string{"topic", "outcome"}),
		renderFailures: newCounterVec("render_failures_total", "Normalized records whose template failed to render", []string{"topic"}),
		recordSeconds:  newHistogramVec("record_duration_seconds", "Time spent normalizing and rendering one record", prometheus.ExponentialBuckets(0.0001, 4, 8), []string{"topic"}),
		batchSizeHist:  newHistogramVec("batch_size", "Messages per polled batch", []float64{1, 10, 50, 100, 200, 300, 500}, []string{"topic"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *IngestMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.messagesTotal,
		m.batchesTotal,
		m.batchesSkipped,
		m.recordsTotal,
		m.renderFailures,
		m.recordSeconds,
		m.batchSizeHist,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// MessagesReceived records one polled batch of n messages.
func (m *IngestMetrics) MessagesReceived(topic string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.topicStats(topic)
	stats.MessagesReceived += uint64(n)
	stats.Batches++
	stats.LastUpdatedAt = time.Now()

	m.messagesTotal.WithLabelValues(topic).Add(float64(n))
	m.batchesTotal.WithLabelValues(topic).Inc()
	m.batchSizeHist.WithLabelValues(topic).Observe(float64(n))
}

// BatchSkipped records a batch dropped on decode failure.
func (m *IngestMetrics) BatchSkipped(topic string, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.topicStats(topic)
	stats.BatchesSkipped++
	stats.LastUpdatedAt = time.Now()

	m.batchesSkipped.WithLabelValues(topic).Inc()
}

// RecordDone records a record that went through the pipeline.
func (m *IngestMetrics) RecordDone(topic, outcome string, took time.Duration) {
	m.recordOutcome(topic, outcome, took)
}

// RecordFailed records a record aborted by err, labelled with its kind.
func (m *IngestMetrics) RecordFailed(topic string, err error, took time.Duration) {
	m.recordOutcome(topic, string(errspkg.Kind(err)), took)
}

// RenderFailed records a template failure on a normalized record.
func (m *IngestMetrics) RenderFailed(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.topicStats(topic)
	stats.RenderFailures++
	stats.LastUpdatedAt = time.Now()

	m.renderFailures.WithLabelValues(topic).Inc()
}

func (m *IngestMetrics) recordOutcome(topic, outcome string, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.topicStats(topic)
	stats.Records[outcome]++
	stats.LastUpdatedAt = time.Now()

	m.recordsTotal.WithLabelValues(topic, outcome).Inc()
	m.recordSeconds.WithLabelValues(topic).Observe(took.Seconds())
}

// Topic returns a copy of the stats for topic, or nil when nothing was seen.
func (m *IngestMetrics) Topic(topic string) *TopicStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, ok := m.topics[topic]
	if !ok {
		return nil
	}
	cp := *stats
	cp.Records = make(map[string]uint64, len(stats.Records))
	for k, v := range stats.Records {
		cp.Records[k] = v
	}
	return &cp
}

func (m *IngestMetrics) topicStats(topic string) *TopicStats {
	stats, ok := m.topics[topic]
	if !ok {
		stats = &TopicStats{Records: make(map[string]uint64)}
		m.topics[topic] = stats
	}
	return stats
}

// Handler serves the collectors of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every observation.
type Nop struct{}

func (Nop) MessagesReceived(string, int)              {}
func (Nop) BatchSkipped(string, int)                  {}
func (Nop) RecordDone(string, string, time.Duration)  {}
func (Nop) RecordFailed(string, error, time.Duration) {}
func (Nop) RenderFailed(string)                       {}
