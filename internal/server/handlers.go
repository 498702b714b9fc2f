package server

import (
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/crimson-sun/vigil/internal/feedback"
	"github.com/crimson-sun/vigil/internal/model"
	"github.com/crimson-sun/vigil/internal/pipeline"
	"github.com/crimson-sun/vigil/internal/scorer"
	"github.com/crimson-sun/vigil/internal/vector"
)

type streamRequest struct {
	Logs []model.RawEntry `json:"logs"`
}

type streamResponse struct {
	Status  string            `json:"status"`
	Results []pipeline.Result `json:"results"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Logs) == 0 {
		writeError(w, http.StatusBadRequest, "no logs provided")
		return
	}

	results := s.pipe.Process(req.Logs)
	writeJSON(w, http.StatusOK, streamResponse{Status: "processed", Results: results})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	anomalies := s.hist.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}

func (s *Server) handleClearAnomalies(w http.ResponseWriter, _ *http.Request) {
	s.hist.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

type trainRequest struct {
	Logs []model.RawEntry `json:"logs"`
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Logs) == 0 {
		writeError(w, http.StatusBadRequest, "no logs provided")
		return
	}

	go s.retrain(req.Logs)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "training_started"})
}

// retrain fits a fresh model on the batch and swaps it in. Failures are
// logged; the previous model stays active.
func (s *Server) retrain(entries []model.RawEntry) {
	records := s.extractor.Parse(entries)
	matrix := vector.Matrix(records, s.trainer.FeatureNames)

	fitted, err := scorer.Fit(matrix, s.trainer.FeatureNames, s.trainer.ZThreshold)
	if err != nil {
		s.log.Error().Err(err).Int("records", len(records)).Msg("training failed")
		return
	}
	if err := fitted.Save(s.trainer.ModelPath); err != nil {
		s.log.Error().Err(err).Str("path", s.trainer.ModelPath).Msg("could not persist trained model")
	}
	s.model.Swap(fitted)
	s.log.Info().Int("samples", len(matrix)).Msg("model retrained and swapped in")
}

type feedbackRequest struct {
	Feedback []feedback.Record `json:"feedback"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Feedback) == 0 {
		writeError(w, http.StatusBadRequest, "no feedback provided")
		return
	}

	go func() {
		if err := s.feedback.Save(req.Feedback); err != nil {
			s.log.Error().Err(err).Msg("could not save feedback")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "feedback_accepted"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.hist.Stat()
	resp := map[string]any{
		"total_anomalies": stats.Total,
		"average_score":   stats.AvgScore,
	}
	if m, ok := s.model.Current().(*scorer.ZScoreModel); ok {
		resp["model"] = map[string]any{
			"trained":       !m.TrainedAt.IsZero(),
			"trained_at":    m.TrainedAt,
			"feature_names": m.FeatureNames,
			"z_threshold":   m.ZThreshold,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
