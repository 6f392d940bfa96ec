package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeConnector bool

func (c fakeConnector) IsConnected() bool { return bool(c) }

func TestCheckerNoDependencies(t *testing.T) {
	status := NewChecker().Check(context.Background())

	assert.True(t, status.Healthy)
	assert.Nil(t, status.DatabaseConnected)
	assert.Nil(t, status.NATSConnected)
	assert.Empty(t, status.Errors)
}

func TestCheckerReportsDependencies(t *testing.T) {
	tests := []struct {
		name        string
		db          Pinger
		nats        Connector
		wantHealthy bool
		wantErrors  int
	}{
		{name: "all up", db: fakePinger{}, nats: fakeConnector(true), wantHealthy: true},
		{name: "database down", db: fakePinger{err: errors.New("refused")}, nats: fakeConnector(true), wantErrors: 1},
		{name: "nats down", db: fakePinger{}, nats: fakeConnector(false), wantErrors: 1},
		{name: "both down", db: fakePinger{err: errors.New("refused")}, nats: fakeConnector(false), wantErrors: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := NewChecker(WithDatabase(tt.db), WithNATS(tt.nats)).Check(context.Background())

			assert.Equal(t, tt.wantHealthy, status.Healthy)
			assert.Len(t, status.Errors, tt.wantErrors)
			require.NotNil(t, status.DatabaseConnected)
			require.NotNil(t, status.NATSConnected)
		})
	}
}

func TestCheckerPendingEvents(t *testing.T) {
	checker := NewChecker(
		WithPendingEvents(func() int { return 12 }, 10),
		WithConnections(func() int { return 3 }),
	)

	status := checker.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, 12, status.PendingEvents)
	assert.Equal(t, 3, status.ActiveConnections)
	assert.Equal(t, []string{"high pending event count: 12"}, status.Errors)
}

func TestCheckerServeHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker(WithDatabase(fakePinger{})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["healthy"])
	assert.Equal(t, true, body["database_connected"])

	rec = httptest.NewRecorder()
	NewChecker(WithNATS(fakeConnector(false))).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
