package server

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/iyulab/cyber-defense/internal/demo"
)

type simulateResponse struct {
	AttackType   string `json:"attack_type"`
	LogsCreated  int    `json:"logs_created"`
	SimulationID string `json:"simulation_id"`
	Message      string `json:"message"`
	Status       string `json:"status"`
}

type executeActionRequest struct {
	Action string `json:"action"`
	Target string `json:"target"`
}

func (s *Server) handleSimulateAttack(w http.ResponseWriter, r *http.Request) {
	attackType := r.URL.Query().Get("attack_type")
	if attackType == "" {
		writeError(w, http.StatusBadRequest, "attack_type is required")
		return
	}

	sim, err := demo.Simulate(attackType, s.now())
	if errors.Is(err, demo.ErrUnknownAttack) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, r, "simulate attack", err)
		return
	}

	if err := s.store.InsertBatch(r.Context(), sim.Records); err != nil {
		s.internalError(w, r, "simulate attack", err)
		return
	}
	for _, rec := range sim.Records {
		s.metrics.EventsIngested(rec.Severity, 1)
	}

	s.logger.Info("attack simulated",
		zap.String("attack_type", sim.AttackType),
		zap.String("simulation_id", sim.ID),
		zap.Int("records", len(sim.Records)),
	)

	writeJSON(w, http.StatusOK, simulateResponse{
		AttackType:   sim.AttackType,
		LogsCreated:  len(sim.Records),
		SimulationID: sim.ID,
		Message:      fmt.Sprintf("Simulated %s: %d events generated", sim.Name, len(sim.Records)),
		Status:       "success",
	})
}

func (s *Server) handleThreatIntelligence(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, demo.ThreatIntel(s.now()))
}

func (s *Server) handleAttackMap(w http.ResponseWriter, r *http.Request) {
	s.rngMu.Lock()
	m := demo.Map(s.now(), s.rng)
	s.rngMu.Unlock()

	writeJSON(w, http.StatusOK, m)
}

// handleExecuteAction accepts the action either as a JSON body or as query
// parameters; body fields win.
func (s *Server) handleExecuteAction(w http.ResponseWriter, r *http.Request) {
	var req executeActionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	q := r.URL.Query()
	if req.Action == "" {
		req.Action = q.Get("action")
	}
	if req.Target == "" {
		req.Target = q.Get("target")
	}

	res, err := demo.Execute(req.Action, req.Target, s.now())
	if err != nil {
		if errors.Is(err, demo.ErrUnknownAction) || errors.Is(err, demo.ErrTargetRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, r, "execute action", err)
		return
	}

	s.logger.Info("action executed",
		zap.String("action", res.Action),
		zap.String("target", res.Target),
		zap.String("execution_id", res.ExecutionID),
	)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePurgeDemo(w http.ResponseWriter, r *http.Request) {
	marker := r.URL.Query().Get("marker")
	if marker == "" {
		marker = demo.PersistentMarker
	}

	deleted, err := s.store.DeleteByMarker(r.Context(), marker)
	if err != nil {
		s.internalError(w, r, "purge demo logs", err)
		return
	}

	s.logger.Info("demo logs purged", zap.String("marker", marker), zap.Int64("deleted", deleted))
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"marker":  marker,
	})
}
