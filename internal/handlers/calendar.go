package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/kirbacho/DandyHacks-2025/internal/middleware"
	"github.com/kirbacho/DandyHacks-2025/internal/models"
	"github.com/kirbacho/DandyHacks-2025/internal/repository"
	"github.com/kirbacho/DandyHacks-2025/internal/services"
)

// CalendarHandler covers reads and writes against the user's Google Calendar
// plus the OAuth-free ICS export.
type CalendarHandler struct {
	calendar *services.CalendarService
	tokens   *repository.TokenRepo
}

func NewCalendarHandler(calendar *services.CalendarService, tokens *repository.TokenRepo) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, tokens: tokens}
}

// upcomingWindowDays is how far ahead the conflict-check fetch looks.
const upcomingWindowDays = 60

type eventsResponse struct {
	Success bool                   `json:"success"`
	Events  []models.CalendarEvent `json:"events"`
}

// Events handles GET /api/v1/calendar/events. An unauthorized session or a
// failed fetch yields an empty list, not an error: the caller uses this for
// conflict checking and planning proceeds without conflicts either way.
func (h *CalendarHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	empty := eventsResponse{Success: true, Events: []models.CalendarEvent{}}

	token, err := h.tokens.Get(ctx, sessionID)
	if err != nil || token == nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	svc, ts, err := h.calendar.Service(ctx, token)
	if err != nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	events, err := h.calendar.UpcomingEvents(ctx, svc, upcomingWindowDays)
	if err != nil {
		log.Printf("Calendar fetch failed for session %s: %v", sessionID, err)
		writeJSON(w, http.StatusOK, empty)
		return
	}

	h.persistRefreshedToken(r, token, ts)

	if events == nil {
		events = []models.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Success: true, Events: events})
}

// Add handles POST /api/v1/calendar/add.
func (h *CalendarHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	var req models.AddToCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if len(req.Events) == 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"events": "At least one event is required"}, r))
		return
	}

	token, err := h.tokens.Get(ctx, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if token == nil {
		handleServiceError(w, r, &services.UnauthorizedError{Message: "Not authenticated with Google Calendar"})
		return
	}

	svc, ts, err := h.calendar.Service(ctx, token)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := h.calendar.InsertEvents(ctx, svc, req.Events)
	h.persistRefreshedToken(r, token, ts)

	writeJSON(w, http.StatusOK, resp)
}

// ExportICS handles POST /api/v1/calendar/export.ics. No Google account
// needed; the response is a downloadable iCalendar file.
func (h *CalendarHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	data, err := h.calendar.BuildICS(req.Events)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"events": "No exportable events"}, r))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="syllabus-events.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// persistRefreshedToken saves the token back if the transparent refresh
// produced a new access token. Best effort: a failed save just means one
// extra refresh next time.
func (h *CalendarHandler) persistRefreshedToken(r *http.Request, original *oauth2.Token, ts oauth2.TokenSource) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	fresh, err := ts.Token()
	if err != nil || fresh.AccessToken == original.AccessToken {
		return
	}
	if err := h.tokens.Save(ctx, sessionID, fresh); err != nil {
		log.Printf("Failed to persist refreshed token for session %s: %v", sessionID, err)
	}
}
