package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iyulab/cyber-defense/internal/client"
	"github.com/iyulab/cyber-defense/internal/event"
	"github.com/iyulab/cyber-defense/internal/server"
	"github.com/iyulab/cyber-defense/internal/store/storetest"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	srv := server.New(storetest.New(t), nil, nil, server.WithLogger(zaptest.NewLogger(t)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return client.New(ts.URL+"/", 5*time.Second)
}

func TestClient_RoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)

	created, err := c.CreateLog(ctx, event.Record{
		Timestamp: time.Now().Add(-time.Minute),
		SourceIP:  "203.0.113.42",
		DestIP:    "10.0.1.50",
		EventType: "malware_detection",
		Severity:  "Critical",
		Message:   "C2 communication attempt blocked",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	logs, err := c.ListLogs(ctx, client.LogQuery{Severity: "critical"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "malware_detection", logs[0].EventType)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalLogs)
	assert.EqualValues(t, 1, stats.Last24hSeverity["critical"])

	analysis, err := c.Analysis(ctx, 24, 50)
	require.NoError(t, err)
	assert.Equal(t, "critical", analysis.SeverityClassification)
	assert.Equal(t, 1, analysis.TotalLogsAnalyzed)

	answer, err := c.Chat(ctx, "what is our current status?")
	require.NoError(t, err)
	assert.Equal(t, 1, answer.ContextLogsUsed)
	assert.NotEmpty(t, answer.Answer)
}

func TestClient_DemoEndpoints(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	sim, err := c.SimulateAttack(ctx, "phishing")
	require.NoError(t, err)
	assert.Positive(t, sim.LogsCreated)

	res, err := c.ExecuteAction(ctx, "block_ip", "198.51.100.7")
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)

	intel, err := c.ThreatIntelligence(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, intel.Feeds)

	deleted, err := c.PurgeDemo(ctx, "SIMULATION:phishing")
	require.NoError(t, err)
	assert.EqualValues(t, sim.LogsCreated, deleted)
}

func TestClient_APIError(t *testing.T) {
	c := newClient(t)

	_, err := c.SimulateAttack(context.Background(), "meteor")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "unknown attack type")
}

func TestClient_TruncatesUnstructuredErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(strings.Repeat("x", 600)))
	}))
	defer ts.Close()

	_, err := client.New(ts.URL, time.Second).Health(context.Background())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.True(t, strings.HasSuffix(apiErr.Message, "... (truncated)"))
	assert.Len(t, apiErr.Message, 512+len("... (truncated)"))
}
