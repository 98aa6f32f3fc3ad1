package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/avroflow/internal/runtime/jsoncodec"
	"github.com/drblury/avroflow/internal/runtime/metrics"
)

func TestHandleGetStatsReturnsJSON(t *testing.T) {
	svc, err := NewService(context.Background(), newChannelConfig(), newTestLogger(), ServiceDependencies{})
	require.NoError(t, err)
	defer svc.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	svc.StatsHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload StatsSnapshot
	require.NoError(t, jsoncodec.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "profiles", payload.Topic)
	assert.Equal(t, "channel", payload.Transport.Name)
	assert.Nil(t, payload.Ingest)
	assert.NotZero(t, payload.Resource.Goroutines)

	svc.Metrics().MessagesReceived("profiles", 3)
	svc.Metrics().RecordDone("profiles", metrics.OutcomeProcessed, time.Millisecond)

	rec = httptest.NewRecorder()
	svc.StatsHandler().ServeHTTP(rec, req)
	require.NoError(t, jsoncodec.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotNil(t, payload.Ingest)
	assert.Equal(t, uint64(3), payload.Ingest.MessagesReceived)
	assert.Equal(t, uint64(1), payload.Ingest.Records[metrics.OutcomeProcessed])
}

func TestHandleGetStatsRejectsOtherMethods(t *testing.T) {
	svc, err := NewService(context.Background(), newChannelConfig(), newTestLogger(), ServiceDependencies{})
	require.NoError(t, err)
	defer svc.Close()

	rec := httptest.NewRecorder()
	svc.StatsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stats", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
