package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/kirbacho/DandyHacks-2025/internal/middleware"
	"github.com/kirbacho/DandyHacks-2025/internal/models"
	"github.com/kirbacho/DandyHacks-2025/internal/planner"
	"github.com/kirbacho/DandyHacks-2025/internal/services"
)

type SessionsHandler struct {
	gemini *services.GeminiService
	cache  *redis.Client
}

func NewSessionsHandler(gemini *services.GeminiService, cache *redis.Client) *SessionsHandler {
	return &SessionsHandler{gemini: gemini, cache: cache}
}

// Generate handles POST /api/v1/study-sessions/generate. Tip lookup degrades
// through three levels (worker-cached tips, a live Gemini call, the static
// fallback list) and never fails the request.
func (h *SessionsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateSessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.ExamEvent.Title == "" {
		fields["exam_event.title"] = "Title is required"
	}
	if req.ExamEvent.Date == "" {
		fields["exam_event.date"] = "Date is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	// Planning study time for a study session would recurse forever in
	// spirit; these titles get an empty plan.
	if planner.IsReviewSession(req.ExamEvent.Title) {
		writeJSON(w, http.StatusOK, models.GenerateSessionsResponse{
			Success:       true,
			StudySessions: []models.CalendarEvent{},
		})
		return
	}

	offsets := req.DaysBefore
	if len(offsets) == 0 {
		offsets = planner.DefaultOffsets(planner.Classify(req.ExamEvent.Title))
	}

	tips := h.studyTips(r, req.ExamEvent)

	sessions, err := planner.Plan(req.ExamEvent, req.ExistingEvents, offsets, req.Preference, tips)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"exam_event.date": "Date must be YYYY-MM-DD"}, r))
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateSessionsResponse{
		Success:       true,
		StudySessions: sessions,
	})
}

// studyTips resolves tips for a deadline: worker cache first, then a live
// Gemini call (cached for next time), then the static fallback.
func (h *SessionsHandler) studyTips(r *http.Request, event models.CalendarEvent) []string {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)
	key := services.TipCacheKey(sessionID, event.Title, event.Date)

	if cached, err := h.cache.Get(ctx, key).Bytes(); err == nil {
		var tips []string
		if json.Unmarshal(cached, &tips) == nil && len(tips) > 0 {
			return tips
		}
	}

	tips, err := h.gemini.GenerateStudyTips(ctx, event)
	if err != nil {
		log.Printf("Study tip generation failed for %q, using fallback: %v", event.Title, err)
		return planner.FallbackTips
	}

	if payload, err := json.Marshal(tips); err == nil {
		h.cache.Set(ctx, key, payload, services.TipCacheTTL)
	}
	return tips
}
