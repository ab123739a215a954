package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iyulab/cyber-defense/internal/analyzer"
	"github.com/iyulab/cyber-defense/internal/event"
	"github.com/iyulab/cyber-defense/internal/store"
)

const (
	defaultListHours = 24
	maxListLimit     = 1000
	maxHoursBack     = 24 * 365 * 10
	topTypesLimit    = 10
	maxBodyBytes     = 1 << 20
)

var errBadRequest = errors.New("bad request")

// createLogRequest is the POST /logs body.
type createLogRequest struct {
	Timestamp flexTime `json:"timestamp"`
	SourceIP  string   `json:"source_ip" validate:"required,max=255"`
	DestIP    string   `json:"dest_ip" validate:"required,max=255"`
	EventType string   `json:"event_type" validate:"required,max=100"`
	Severity  string   `json:"severity" validate:"required,max=20"`
	Message   string   `json:"message" validate:"required"`
}

type createLogResponse struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
	Status  string `json:"status"`
}

type analysisResponse struct {
	analyzer.Assessment
	Timestamp time.Time `json:"timestamp"`
}

type chatRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type chatResponse struct {
	Question        string    `json:"question"`
	Answer          string    `json:"answer"`
	ContextLogsUsed int       `json:"context_logs_used"`
	Timestamp       time.Time `json:"timestamp"`
}

type statsResponse struct {
	TotalLogs        int64                  `json:"total_logs"`
	Last24hSeverity  map[string]int64       `json:"last_24h_severity"`
	TopEventTypes24h []store.EventTypeCount `json:"top_event_types_24h"`
	Timestamp        time.Time              `json:"timestamp"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "AI-Powered Cyber Defense Assistant API",
		"status":      "operational",
		"ai_enabled":  s.analyzer.HasProvider(),
		"environment": s.cfg.Environment,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Severity = event.NormalizeSeverity(req.Severity)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	rec := &event.Record{
		Timestamp: req.Timestamp.Time,
		SourceIP:  req.SourceIP,
		DestIP:    req.DestIP,
		EventType: req.EventType,
		Severity:  req.Severity,
		Message:   req.Message,
	}
	rec.Normalize(s.now())

	if err := s.store.Insert(r.Context(), rec); err != nil {
		s.internalError(w, r, "create log", err)
		return
	}
	s.metrics.EventsIngested(rec.Severity, 1)

	writeJSON(w, http.StatusOK, createLogResponse{
		Message: "Log entry created successfully",
		ID:      rec.ID,
		Status:  "success",
	})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), store.DefaultLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	hours, err := queryInt(q.Get("hours_back"), defaultListHours, maxHoursBack)
	if err != nil {
		writeError(w, http.StatusBadRequest, "hours_back: "+err.Error())
		return
	}

	records, err := s.store.List(r.Context(), store.Filter{
		Since:     s.since(hours),
		Severity:  q.Get("severity"),
		EventType: q.Get("event_type"),
		Limit:     limit,
	})
	if err != nil {
		s.internalError(w, r, "list logs", err)
		return
	}
	if records == nil {
		records = []event.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hours, err := queryInt(q.Get("hours_back"), s.cfg.Analysis.WindowHours, maxHoursBack)
	if err != nil {
		writeError(w, http.StatusBadRequest, "hours_back: "+err.Error())
		return
	}
	limit, err := queryInt(q.Get("limit"), s.cfg.Analysis.Limit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}

	records, err := s.windowRecords(r.Context(), hours, limit)
	if err != nil {
		s.internalError(w, r, "analysis", err)
		return
	}

	writeJSON(w, http.StatusOK, analysisResponse{
		Assessment: s.analyzer.Analyze(r.Context(), records),
		Timestamp:  s.now().UTC(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	records, err := s.windowRecords(r.Context(), s.cfg.Analysis.ChatWindowHours, s.cfg.Analysis.ChatLimit)
	if err != nil {
		s.internalError(w, r, "chat", err)
		return
	}

	result := s.analyzer.Chat(r.Context(), req.Question, records)
	writeJSON(w, http.StatusOK, chatResponse{
		Question:        req.Question,
		Answer:          result.Answer,
		ContextLogsUsed: len(records),
		Timestamp:       s.now().UTC(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	since := s.since(s.cfg.Analysis.StatsWindowHours)

	total, err := s.store.Count(ctx)
	if err != nil {
		s.internalError(w, r, "stats", err)
		return
	}
	severity, err := s.store.SeverityCounts(ctx, since)
	if err != nil {
		s.internalError(w, r, "stats", err)
		return
	}
	top, err := s.store.TopEventTypes(ctx, since, topTypesLimit)
	if err != nil {
		s.internalError(w, r, "stats", err)
		return
	}
	if top == nil {
		top = []store.EventTypeCount{}
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalLogs:        total,
		Last24hSeverity:  severity,
		TopEventTypes24h: top,
		Timestamp:        s.now().UTC(),
	})
}

// windowRecords returns the most recent records inside the window. When the
// window is sparse the window is dropped so analysis still has material.
func (s *Server) windowRecords(ctx context.Context, hours, limit int) ([]event.Record, error) {
	records, err := s.store.Recent(ctx, s.since(hours), limit)
	if err != nil {
		return nil, err
	}
	if len(records) >= s.cfg.Analysis.MinWindowRecords {
		return records, nil
	}

	s.logger.Debug("window sparse, using all records",
		zap.Int("hours", hours),
		zap.Int("found", len(records)),
	)
	return s.store.Recent(ctx, time.Time{}, limit)
}

func (s *Server) since(hours int) time.Time {
	return s.now().UTC().Add(-time.Duration(hours) * time.Hour)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op+" failed",
		zap.Error(err),
		zap.String("path", r.URL.Path),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

// queryInt parses a positive integer query value. An empty value yields def;
// upper > 0 caps the result.
func queryInt(raw string, def, upper int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer, got %q", raw)
	}
	if upper > 0 && n > upper {
		n = upper
	}
	return n, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

var jsonFieldNames = map[string]string{
	"SourceIP":  "source_ip",
	"DestIP":    "dest_ip",
	"EventType": "event_type",
	"Severity":  "severity",
	"Message":   "message",
	"Question":  "question",
}

func jsonFieldName(field string) string {
	if name, ok := jsonFieldNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}

// flexTime accepts RFC 3339 as well as zone-less ISO timestamps, which are read as UTC.
type flexTime struct {
	time.Time
}

var flexTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string")
	}
	if raw == nil || *raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range flexTimeLayouts {
		if parsed, err := time.Parse(layout, *raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", *raw)
}
