package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/abhisek/tutord/internal/catalog"
	"github.com/abhisek/tutord/internal/mastery"
	"github.com/abhisek/tutord/internal/orchestrator"
	"github.com/abhisek/tutord/internal/session"
)

type startRequest struct {
	LearnerID string `json:"learner_id"`
	ItemID    string `json:"item_id"`
}

type startAdaptiveRequest struct {
	LearnerID string `json:"learner_id"`
	Topic     string `json:"topic"`
}

type stepRequest struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

type endRequest struct {
	SessionID string `json:"session_id"`
}

type sessionView struct {
	ID              string                      `json:"session_id"`
	LearnerID       string                      `json:"learner_id"`
	ItemID          string                      `json:"item_id"`
	CurrentStep     int                         `json:"current_step"`
	AttemptsCurrent int                         `json:"attempts_current"`
	HintsUsed       int                         `json:"hints_used"`
	Finished        bool                        `json:"finished"`
	Success         bool                        `json:"success"`
	CurrentPrompt   string                      `json:"current_prompt,omitempty"`
	Conversation    []session.ConversationEntry `json:"conversation"`

	Misconceptions map[string]session.MisconceptionSummary `json:"misconceptions,omitempty"`
}

func viewOf(s *session.Session) sessionView {
	return sessionView{
		ID:              s.ID,
		LearnerID:       s.LearnerID,
		ItemID:          s.ItemID,
		CurrentStep:     s.CurrentStep,
		AttemptsCurrent: s.AttemptsCurrent,
		HintsUsed:       s.HintsUsed,
		Finished:        s.Finished,
		Success:         s.Success,
		Conversation:    s.Conversation,
		Misconceptions:  s.MisconceptionSummaries(),
	}
}

type startResponse struct {
	SessionID  string `json:"session_id"`
	ItemID     string `json:"item_id"`
	Greeting   string `json:"greeting"`
	ResolvedBy string `json:"resolved_by"`
}

type stepResponse struct {
	SessionID string `json:"session_id"`
	Correct   *bool  `json:"correct"`
	Feedback  string `json:"feedback"`
	Hint      string `json:"hint,omitempty"`
	StepIndex int    `json:"step_index"`
	Finished  bool   `json:"finished"`
	Success   bool   `json:"success"`

	XPAwarded         int    `json:"xp_awarded,omitempty"`
	NextItemID        string `json:"next_item_id,omitempty"`
	CompletionMessage string `json:"completion_message,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LearnerID == "" || req.ItemID == "" {
		writeErrorBody(w, http.StatusBadRequest, "learner_id and item_id are required", nil)
		return
	}

	res, err := s.orch.Start(r.Context(), req.LearnerID, req.ItemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{
		SessionID:  res.Session.ID,
		ItemID:     res.Item.ID,
		Greeting:   res.Greeting,
		ResolvedBy: string(res.ResolvedBy),
	})
}

func (s *Server) handleStartAdaptive(w http.ResponseWriter, r *http.Request) {
	var req startAdaptiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LearnerID == "" || req.Topic == "" {
		writeErrorBody(w, http.StatusBadRequest, "learner_id and topic are required", nil)
		return
	}

	res, err := s.orch.StartAdaptive(r.Context(), req.LearnerID, req.Topic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{
		SessionID:  res.Session.ID,
		ItemID:     res.Item.ID,
		Greeting:   res.Greeting,
		ResolvedBy: string(res.ResolvedBy),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.orch.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view := viewOf(sess)
	// Resuming clients need the prompt they should be answering.
	if it, ok := s.catalog.GetItem(sess.ItemID); ok && !sess.Finished {
		if step, ok := it.StepAt(sess.CurrentStep); ok {
			view.CurrentPrompt = step.Prompt
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeErrorBody(w, http.StatusBadRequest, "session_id is required", nil)
		return
	}

	res, err := s.orch.Step(r.Context(), req.SessionID, req.Response)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recordVerdict(res.Correct)
	writeJSON(w, http.StatusOK, stepResponse{
		SessionID:         res.SessionID,
		Correct:           res.Correct,
		Feedback:          res.Feedback,
		Hint:              res.Hint,
		StepIndex:         res.StepIndex,
		Finished:          res.Finished,
		Success:           res.Success,
		XPAwarded:         res.XPAwarded,
		NextItemID:        res.NextItemID,
		CompletionMessage: res.CompletionMessage,
	})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeErrorBody(w, http.StatusBadRequest, "session_id is required", nil)
		return
	}

	sess, err := s.orch.End(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleProgressionStatus(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		writeErrorBody(w, http.StatusBadRequest, "topic query parameter is required", nil)
		return
	}

	st, p, err := s.orch.ProgressionStatus(r.Context(), learnerID, topic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"learner_id":      learnerID,
		"topic":           st.Topic,
		"total_items":     st.TotalItems,
		"completed_items": st.CompletedItems,
		"percent_done":    st.PercentDone,
		"next_item_id":    st.NextItemID,
		"item_ids":        st.ItemIDs,
		"xp":              p.XP,
		"level":           p.Level(),
		"mastery":         p.Mastery[topic],
		"mastery_band":    mastery.BandOf(p.Mastery[topic]),
	})
}

func (s *Server) handleTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"topics": s.orch.AvailableTopics(),
	})
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *orchestrator.NotFoundError
	if errors.As(err, &nf) {
		writeErrorBody(w, http.StatusNotFound, nf.Error(), nil)
		return
	}
	var ut *orchestrator.UnresolvedTopicError
	if errors.As(err, &ut) {
		writeErrorBody(w, http.StatusNotFound, ut.Error(), map[string]any{
			"available_topics": ut.AvailableTopics,
		})
		return
	}
	var malformed *catalog.ErrMalformedItem
	if errors.As(err, &malformed) {
		s.logger.Error("malformed catalog item", zap.Error(err))
		writeErrorBody(w, http.StatusUnprocessableEntity, malformed.Error(), nil)
		return
	}

	s.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeErrorBody(w, http.StatusInternalServerError, "internal error", nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "invalid request body: "+err.Error(), nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorBody(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	body := map[string]any{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}
