package runtime

import (
	"net/http"

	"github.com/drblury/avroflow/internal/runtime/jsoncodec"
	"github.com/drblury/avroflow/internal/runtime/metrics"
	transportpkg "github.com/drblury/avroflow/transport"
)

// StatsSnapshot is the body of the stats endpoint.
type StatsSnapshot struct {
	Topic     string                    `json:"topic"`
	Transport transportpkg.Capabilities `json:"transport"`
	// Ingest is nil until the first batch was polled.
	Ingest   *metrics.TopicStats `json:"ingest"`
	Resource ResourceUsage       `json:"resource"`
}

// Stats returns the current ingestion and process statistics.
func (s *Service) Stats() StatsSnapshot {
	return StatsSnapshot{
		Topic:     s.Conf.KafkaTopic,
		Transport: s.caps,
		Ingest:    s.metrics.Topic(s.Conf.KafkaTopic),
		Resource:  s.resources.Snapshot(),
	}
}

// StatsHandler serves Stats as JSON.
func (s *Service) StatsHandler() http.Handler {
	return http.HandlerFunc(s.handleGetStats)
}

func (s *Service) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, s.Stats()); err != nil {
		s.Logger.Error("Failed to encode stats", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
