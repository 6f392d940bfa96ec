package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsGameCounters(t *testing.T) {
	m := NewPrometheusMetrics()

	m.RecordGameStarted("base")
	m.RecordGameStarted("base")
	m.RecordRoundCleared("base", 30, 420*time.Millisecond)
	m.RecordRoundCleared("base", 20, 610*time.Millisecond)
	m.RecordGameOver("base", game.EndReasonTimeout, 50, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gamesStarted.WithLabelValues("base")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roundsCleared.WithLabelValues("base", "30")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roundsCleared.WithLabelValues("base", "20")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gamesEnded.WithLabelValues("base", "timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.roundsCleared))
}

func TestPrometheusMetricsEvents(t *testing.T) {
	m := NewPrometheusMetrics()

	m.RecordEventPublished("game_over", true, 3*time.Millisecond)
	m.RecordEventPublished("game_over", false, time.Second)
	m.RecordPublishAttempt("game_over", 2, true)
	m.RecordEventDropped("round_cleared")
	m.RecordQueueDepth(7)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.KeyRateLimited()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("game_over", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("game_over", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishAttempts.WithLabelValues("game_over", "2", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDropped.WithLabelValues("round_cleared")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.eventQueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keysRateLimited))
}

func TestPrometheusHandler(t *testing.T) {
	m := NewPrometheusMetrics()
	m.RecordGameStarted("expanding")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reflex_games_started_total{variant="expanding"} 1`)
}
