package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldops/ticketd/internal/service"
	"github.com/fieldops/ticketd/internal/solution"
)

// handlers holds the HTTP handlers and their dependencies.
type handlers struct {
	rec    Recommender
	logger *slog.Logger
}

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type solutionDTO struct {
	Key           string  `json:"key"`
	Text          string  `json:"text"`
	FeedbackCount int64   `json:"feedback_count"`
	Confidence    float64 `json:"confidence"`
}

type queryResponse struct {
	SessionID     string        `json:"session_id"`
	TicketID      string        `json:"ticket_id"`
	SystemName    string        `json:"system_name"`
	Complaint     string        `json:"customer_complaint"`
	FaultText     string        `json:"fault_text"`
	Score         float64       `json:"score"`
	Solutions     []solutionDTO `json:"solutions"`
	Summary       string        `json:"summary"`
	LowConfidence bool          `json:"low_confidence"`
	SafetyWarning bool          `json:"safety_warning"`
}

type feedbackRequest struct {
	SessionID   string `json:"session_id"`
	TicketID    string `json:"ticket_id"`
	SolutionKey string `json:"solution_key"`
}

type feedbackResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleQuery runs the recommendation pipeline for a user query.
func (h *handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	// A missing session ID starts a new session.
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	rec, err := h.rec.Recommend(r.Context(), req.SessionID, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSuperseded):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "superseded by a newer query on this session"})
		case errors.Is(err, service.ErrNoCandidates):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no matching tickets found"})
		default:
			h.logger.Error("query failed", "session_id", req.SessionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "query failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toQueryResponse(rec))
}

// handleFeedback records a confirmed solution.
func (h *handlers) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if req.SessionID == "" || req.TicketID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_id and ticket_id are required"})
		return
	}
	if !solution.ValidKey(req.SolutionKey) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown solution key"})
		return
	}

	if err := h.rec.SubmitFeedback(r.Context(), req.SessionID, req.TicketID, req.SolutionKey); err != nil {
		h.logger.Error("feedback failed", "ticket_id", req.TicketID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "recording feedback failed"})
		return
	}

	writeJSON(w, http.StatusOK, feedbackResponse{
		Message: "Feedback recorded! Your confirmed solution will naturally rise in ranking.",
	})
}

// handleReload swaps in a fresh ticket catalog.
func (h *handlers) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.rec.Reload(r.Context()); err != nil {
		h.logger.Error("catalog reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reload failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func toQueryResponse(rec *service.Recommendation) queryResponse {
	solutions := make([]solutionDTO, 0, len(rec.Solutions))
	for _, s := range rec.Solutions {
		solutions = append(solutions, solutionDTO{
			Key:           s.Key,
			Text:          s.Text,
			FeedbackCount: s.FeedbackCount,
			Confidence:    s.Confidence,
		})
	}

	return queryResponse{
		SessionID:     rec.SessionID,
		TicketID:      rec.Ticket.TicketID,
		SystemName:    rec.Ticket.SystemName,
		Complaint:     rec.Ticket.CustomerComplaint,
		FaultText:     rec.Ticket.FaultText,
		Score:         rec.Score,
		Solutions:     solutions,
		Summary:       rec.Summary,
		LowConfidence: rec.LowConfidence,
		SafetyWarning: rec.SafetyWarning,
	}
}
