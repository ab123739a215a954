package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iyulab/cyber-defense/internal/server"
	"github.com/iyulab/cyber-defense/internal/store"
	"github.com/iyulab/cyber-defense/internal/store/storetest"
)

func startAPI(t *testing.T) (string, *store.Store) {
	t.Helper()
	st := storetest.New(t)
	srv := server.New(st, nil, nil, server.WithLogger(zaptest.NewLogger(t)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL, st
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_GenerateThenStatus(t *testing.T) {
	api, st := startAPI(t)

	out, err := runCLI(t, "--api", api, "generate", "-n", "12", "--concurrency", "3", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "sent 12/12 events")

	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)

	out, err = runCLI(t, "--api", api, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "12")
}

func TestCLI_IngestLogsAnalyze(t *testing.T) {
	api, _ := startAPI(t)

	_, err := runCLI(t, "--api", api, "ingest",
		"--source-ip", "203.0.113.42", "--dest-ip", "10.0.1.50",
		"--event-type", "ransomware_detected", "--severity", "critical",
		"--message", "Files encrypted on file server")
	require.NoError(t, err)

	out, err := runCLI(t, "--api", api, "logs")
	require.NoError(t, err)
	assert.Contains(t, out, "ransomware_detected")

	out, err = runCLI(t, "--api", api, "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "Malware activity identified (1 events)")

	out, err = runCLI(t, "--api", api, "chat", "which", "ip", "should", "we", "block?")
	require.NoError(t, err)
	assert.Contains(t, out, "203.0.113.42")
}

func TestCLI_IngestRejectedByServer(t *testing.T) {
	api, _ := startAPI(t)

	_, err := runCLI(t, "--api", api, "ingest", "--source-ip", "1.2.3.4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dest_ip is required")
}

func TestCLI_SimulateAndActions(t *testing.T) {
	api, _ := startAPI(t)

	out, err := runCLI(t, "--api", api, "simulate")
	require.NoError(t, err)
	for _, typ := range []string{"ddos", "phishing", "insider_threat", "ransomware"} {
		assert.Contains(t, out, typ)
	}

	out, err = runCLI(t, "--api", api, "simulate", "ddos")
	require.NoError(t, err)
	assert.Contains(t, out, "Simulated DDoS Attack")

	out, err = runCLI(t, "--api", api, "actions", "block_ip", "203.0.113.42")
	require.NoError(t, err)
	assert.Contains(t, out, "203.0.113.42")

	_, err = runCLI(t, "--api", api, "actions", "block_ip")
	assert.Error(t, err)

	out, err = runCLI(t, "--api", api, "purge-demo", "--marker", "SIMULATION:ddos")
	require.NoError(t, err)
	assert.False(t, strings.Contains(out, "deleted 0 "), out)
}

func TestCLI_Init(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyberdefense.toml")

	_, err := runCLI(t, "init", path)
	require.NoError(t, err)

	_, err = runCLI(t, "init", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestCLI_Export(t *testing.T) {
	api, _ := startAPI(t)
	_, err := runCLI(t, "--api", api, "simulate", "phishing")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.zip")
	out, err := runCLI(t, "--api", api, "export", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "logs.json")
	assert.Contains(t, out, "analysis.json")
	assert.Contains(t, out, "stats.json")
	assert.FileExists(t, path)
}
