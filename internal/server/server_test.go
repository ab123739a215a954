package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iyulab/cyber-defense/internal/demo"
	"github.com/iyulab/cyber-defense/internal/event"
	"github.com/iyulab/cyber-defense/internal/server"
	"github.com/iyulab/cyber-defense/internal/store"
	"github.com/iyulab/cyber-defense/internal/store/storetest"
)

func startServer(t *testing.T, st server.Store, opts ...server.Option) string {
	t.Helper()
	opts = append([]server.Option{server.WithLogger(zaptest.NewLogger(t))}, opts...)
	srv := server.New(st, nil, nil, opts...)
	addr, err := srv.Start(context.Background(), "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return "http://" + addr
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, v any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestServer_HealthEndpoint(t *testing.T) {
	base := startServer(t, storetest.New(t))

	var body map[string]any
	if code := getJSON(t, base+"/health", &body); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
}

func TestServer_CreateAndListLogs(t *testing.T) {
	base := startServer(t, storetest.New(t))

	var created struct {
		Message string `json:"message"`
		ID      uint   `json:"id"`
		Status  string `json:"status"`
	}
	code := postJSON(t, base+"/logs", `{
		"source_ip": "203.0.113.42",
		"dest_ip": "10.0.1.50",
		"event_type": "brute_force_ssh",
		"severity": "HIGH",
		"message": "Multiple failed SSH login attempts detected"
	}`, &created)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", created.Status)
	assert.NotZero(t, created.ID)

	var logs []event.Record
	require.Equal(t, http.StatusOK, getJSON(t, base+"/logs", &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, created.ID, logs[0].ID)
	assert.Equal(t, "high", logs[0].Severity)
	assert.Equal(t, "203.0.113.42", logs[0].SourceIP)
	assert.WithinDuration(t, time.Now(), logs[0].Timestamp, time.Minute)
}

func TestServer_CreateLogAcceptsZonelessTimestamp(t *testing.T) {
	base := startServer(t, storetest.New(t))

	ts := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	body := `{"timestamp":"` + ts.Format("2006-01-02T15:04:05") + `","source_ip":"a","dest_ip":"b","event_type":"port_scan","severity":"low","message":"m"}`
	require.Equal(t, http.StatusOK, postJSON(t, base+"/logs", body, nil))

	var logs []event.Record
	getJSON(t, base+"/logs", &logs)
	require.Len(t, logs, 1)
	assert.True(t, ts.Equal(logs[0].Timestamp), "got %v", logs[0].Timestamp)
}

func TestServer_CreateLogValidation(t *testing.T) {
	base := startServer(t, storetest.New(t))

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing source", `{"dest_ip":"b","event_type":"x","severity":"low","message":"m"}`, "source_ip is required"},
		{"blank severity", `{"source_ip":"a","dest_ip":"b","event_type":"x","severity":"  ","message":"m"}`, "severity is required"},
		{"invalid json", `{"source_ip":`, "invalid JSON"},
		{"oversized source", `{"source_ip":"` + strings.Repeat("a", 256) + `","dest_ip":"b","event_type":"x","severity":"low","message":"m"}`, "source_ip must be at most 255 characters"},
		{"empty body", ``, "empty request body"},
		{"bad timestamp", `{"timestamp":"yesterday","source_ip":"a","dest_ip":"b","event_type":"x","severity":"low","message":"m"}`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			code := postJSON(t, base+"/logs", tt.body, &body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestServer_CreateLogKeepsUnrecognizedSeverity(t *testing.T) {
	st := storetest.New(t)
	base := startServer(t, st)

	code := postJSON(t, base+"/logs", `{"source_ip":"a","dest_ip":"b","event_type":"x","severity":"Urgent","message":"m"}`, nil)
	require.Equal(t, http.StatusOK, code)

	var stats struct {
		TotalLogs       int64            `json:"total_logs"`
		Last24hSeverity map[string]int64 `json:"last_24h_severity"`
	}
	getJSON(t, base+"/stats", &stats)
	assert.EqualValues(t, 1, stats.TotalLogs)
	for _, level := range event.Severities {
		assert.Zero(t, stats.Last24hSeverity[level], level)
	}
}

func TestServer_ListLogsFilters(t *testing.T) {
	st := storetest.New(t)
	now := time.Now().UTC()
	require.NoError(t, st.InsertBatch(context.Background(), []event.Record{
		{Timestamp: now.Add(-time.Hour), SourceIP: "a", DestIP: "b", EventType: "port_scan", Severity: "low", Message: "m"},
		{Timestamp: now.Add(-2 * time.Hour), SourceIP: "a", DestIP: "b", EventType: "malware_detection", Severity: "critical", Message: "m"},
		{Timestamp: now.Add(-48 * time.Hour), SourceIP: "a", DestIP: "b", EventType: "malware_detection", Severity: "critical", Message: "old"},
	}))
	base := startServer(t, st)

	var logs []event.Record
	getJSON(t, base+"/logs", &logs)
	require.Len(t, logs, 2)
	assert.Equal(t, "critical", logs[0].Severity, "critical sorts first")

	getJSON(t, base+"/logs?hours_back=72&event_type=MALWARE", &logs)
	assert.Len(t, logs, 2)

	getJSON(t, base+"/logs?severity=low", &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "port_scan", logs[0].EventType)

	getJSON(t, base+"/logs?limit=1", &logs)
	assert.Len(t, logs, 1)

	getJSON(t, base+"/logs?hours_back=999999999", &logs)
	assert.Len(t, logs, 3, "oversized hours_back is capped, not overflowed")

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, getJSON(t, base+"/logs?limit=abc", &errBody))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, base+"/logs?hours_back=-1", &errBody))
}

func TestServer_StatsOverTwentyFourRecords(t *testing.T) {
	st := storetest.New(t)
	now := time.Now().UTC()
	types := []string{"port_scan", "brute_force_ssh", "malware_detection", "failed_login"}
	var records []event.Record
	for i := 0; i < 24; i++ {
		records = append(records, event.Record{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			SourceIP:  "198.51.100.7",
			DestIP:    "10.0.0.1",
			EventType: types[i%len(types)],
			Severity:  event.Severities[i%4],
			Message:   "event",
		})
	}
	require.NoError(t, st.InsertBatch(context.Background(), records))
	base := startServer(t, st)

	var stats struct {
		TotalLogs        int64                  `json:"total_logs"`
		Last24hSeverity  map[string]int64       `json:"last_24h_severity"`
		TopEventTypes24h []store.EventTypeCount `json:"top_event_types_24h"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, base+"/stats", &stats))

	assert.EqualValues(t, 24, stats.TotalLogs)
	var sum int64
	for _, level := range event.Severities {
		assert.EqualValues(t, 6, stats.Last24hSeverity[level], level)
		sum += stats.Last24hSeverity[level]
	}
	assert.EqualValues(t, 24, sum)

	require.NotEmpty(t, stats.TopEventTypes24h)
	assert.LessOrEqual(t, len(stats.TopEventTypes24h), 10)
	for i := 1; i < len(stats.TopEventTypes24h); i++ {
		assert.GreaterOrEqual(t, stats.TopEventTypes24h[i-1].Count, stats.TopEventTypes24h[i].Count)
	}
}

type analysisBody struct {
	Summary                string    `json:"summary"`
	ThreatsIdentified      []string  `json:"threats_identified"`
	SeverityClassification string    `json:"severity_classification"`
	Recommendations        []string  `json:"recommendations"`
	TotalLogsAnalyzed      int       `json:"total_logs_analyzed"`
	Timestamp              time.Time `json:"timestamp"`
}

func TestServer_AnalysisEmptyStore(t *testing.T) {
	base := startServer(t, storetest.New(t))

	var body analysisBody
	require.Equal(t, http.StatusOK, getJSON(t, base+"/analysis", &body))
	assert.Equal(t, "low", body.SeverityClassification)
	assert.NotNil(t, body.ThreatsIdentified)
	assert.Empty(t, body.ThreatsIdentified)
	assert.Empty(t, body.Recommendations)
	assert.Zero(t, body.TotalLogsAnalyzed)
	assert.False(t, body.Timestamp.IsZero())
}

func TestServer_AnalysisHeuristicFallback(t *testing.T) {
	st := storetest.New(t)
	now := time.Now().UTC()
	require.NoError(t, st.InsertBatch(context.Background(), []event.Record{
		{Timestamp: now, SourceIP: "192.168.1.75", DestIP: "10.0.0.5", EventType: "ransomware_detected", Severity: "critical", Message: "files encrypted"},
		{Timestamp: now, SourceIP: "203.0.113.42", DestIP: "10.0.1.50", EventType: "brute_force_ssh", Severity: "high", Message: "failed logins"},
		{Timestamp: now, SourceIP: "203.0.113.42", DestIP: "10.0.1.50", EventType: "brute_force_ssh", Severity: "high", Message: "failed logins"},
	}))
	base := startServer(t, st)

	var body analysisBody
	require.Equal(t, http.StatusOK, getJSON(t, base+"/analysis", &body))
	assert.Equal(t, "critical", body.SeverityClassification)
	assert.Equal(t, 3, body.TotalLogsAnalyzed)
	joined := strings.Join(body.ThreatsIdentified, "\n")
	assert.Contains(t, joined, "Malware activity identified (1 events)")
	assert.Contains(t, joined, "brute force attacks detected (2 events)")
}

func TestServer_ChatBlockRecommendation(t *testing.T) {
	st := storetest.New(t)
	now := time.Now().UTC()
	var records []event.Record
	for i := 0; i < 5; i++ {
		records = append(records, event.Record{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			SourceIP:  "203.0.113.42",
			DestIP:    "10.0.1.50",
			EventType: "brute_force_ssh",
			Severity:  "high",
			Message:   "SSH brute force attack in progress",
		})
	}
	require.NoError(t, st.InsertBatch(context.Background(), records))
	base := startServer(t, st)

	var body struct {
		Question        string `json:"question"`
		Answer          string `json:"answer"`
		ContextLogsUsed int    `json:"context_logs_used"`
	}
	code := postJSON(t, base+"/chat", `{"question":"Which addresses should we block?"}`, &body)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, body.ContextLogsUsed)
	assert.Contains(t, body.Answer, "203.0.113.42")
	assert.Contains(t, body.Answer, "BLOCK")
}

func TestServer_ChatRequiresQuestion(t *testing.T) {
	base := startServer(t, storetest.New(t))

	var body map[string]string
	code := postJSON(t, base+"/chat", `{"question":"   "}`, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "question is required", body["error"])
}

func TestServer_SimulateAttack(t *testing.T) {
	base := startServer(t, storetest.New(t))

	var sim struct {
		AttackType   string `json:"attack_type"`
		LogsCreated  int    `json:"logs_created"`
		SimulationID string `json:"simulation_id"`
		Status       string `json:"status"`
	}
	require.Equal(t, http.StatusOK, postJSON(t, base+"/simulate-attack?attack_type=RANSOMWARE", "", &sim))
	assert.Equal(t, "ransomware", sim.AttackType)
	assert.Equal(t, "success", sim.Status)
	assert.NotEmpty(t, sim.SimulationID)

	var logs []event.Record
	getJSON(t, base+"/logs", &logs)
	assert.Len(t, logs, sim.LogsCreated)
	for _, l := range logs {
		assert.Contains(t, l.Message, "[SIMULATION:ransomware]")
	}

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, postJSON(t, base+"/simulate-attack?attack_type=meteor", "", &errBody))
	assert.Equal(t, http.StatusBadRequest, postJSON(t, base+"/simulate-attack", "", &errBody))
}

func TestServer_ExecuteAction(t *testing.T) {
	base := startServer(t, storetest.New(t))

	var res demo.ActionResult
	code := postJSON(t, base+"/execute-action", `{"action":"block_ip","target":"203.0.113.42"}`, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "block_ip", res.Action)
	assert.NotEmpty(t, res.ExecutionID)

	code = postJSON(t, base+"/execute-action?action=isolate_host&target=ws-042", "", &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ws-042", res.Target)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, postJSON(t, base+"/execute-action", `{"action":"self_destruct","target":"x"}`, &errBody))
	assert.Equal(t, http.StatusBadRequest, postJSON(t, base+"/execute-action", `{"action":"block_ip"}`, &errBody))
}

func TestServer_ThreatIntelligenceAndAttackMap(t *testing.T) {
	base := startServer(t, storetest.New(t), server.WithRand(rand.New(rand.NewSource(42))))

	var intel demo.ThreatIntelligence
	require.Equal(t, http.StatusOK, getJSON(t, base+"/threat-intelligence", &intel))
	assert.Equal(t, len(intel.Feeds), intel.TotalThreats)

	var got demo.AttackMap
	require.Equal(t, http.StatusOK, getJSON(t, base+"/attack-map", &got))
	want := demo.Map(time.Now(), rand.New(rand.NewSource(42)))
	assert.Equal(t, want.TotalAttacks, got.TotalAttacks)
	assert.Len(t, got.Origins, len(want.Origins))
}

func TestServer_PurgeDemoLogs(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	_, err := demo.SeedPersistent(ctx, st, time.Now(), zaptest.NewLogger(t))
	require.NoError(t, err)
	base := startServer(t, st)

	req, err := http.NewRequest(http.MethodDelete, base+"/logs/demo", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 5, body.Deleted)

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServer_NotFoundAndMethodNotAllowed(t *testing.T) {
	base := startServer(t, storetest.New(t))

	var body map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, base+"/nope", &body))
	assert.Equal(t, "endpoint not found", body["error"])

	assert.Equal(t, http.StatusMethodNotAllowed, getJSON(t, base+"/chat", &body))
}

func TestServer_MetricsEndpoint(t *testing.T) {
	base := startServer(t, storetest.New(t))
	getJSON(t, base+"/health", nil)
	getJSON(t, base+"/analysis", nil)

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	text := string(raw)

	assert.Contains(t, text, `cyberdefense_api_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, text, `cyberdefense_analysis_total{path="empty"} 1`)
}

// failingStore fails every aggregate query.
type failingStore struct {
	server.Store
}

func (failingStore) Count(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingStore) Recent(context.Context, time.Time, int) ([]event.Record, error) {
	return nil, errors.New("connection refused")
}

func TestServer_StoreFailureIsGeneric(t *testing.T) {
	base := startServer(t, failingStore{})

	for _, path := range []string{"/stats", "/analysis"} {
		var body map[string]string
		assert.Equal(t, http.StatusInternalServerError, getJSON(t, base+path, &body), path)
		assert.Equal(t, "internal server error", body["error"], path)
	}
}
