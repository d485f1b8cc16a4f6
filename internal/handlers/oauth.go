package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kirbacho/DandyHacks-2025/internal/middleware"
	"github.com/kirbacho/DandyHacks-2025/internal/models"
	"github.com/kirbacho/DandyHacks-2025/internal/repository"
	"github.com/kirbacho/DandyHacks-2025/internal/services"
)

// stateTTL bounds how long a started OAuth flow stays valid.
const stateTTL = 10 * time.Minute

// OAuthHandler runs the Google OAuth web flow. State nonces live in Redis
// keyed by session, so the callback can only complete a flow the same
// browser started.
type OAuthHandler struct {
	calendar    *services.CalendarService
	tokens      *repository.TokenRepo
	cache       *redis.Client
	frontendURL string
}

func NewOAuthHandler(calendar *services.CalendarService, tokens *repository.TokenRepo, cache *redis.Client, frontendURL string) *OAuthHandler {
	return &OAuthHandler{
		calendar:    calendar,
		tokens:      tokens,
		cache:       cache,
		frontendURL: frontendURL,
	}
}

func stateKey(sessionID uuid.UUID) string {
	return "oauth_state:" + sessionID.String()
}

// Start handles GET /auth/google: mint a state nonce and send the browser to
// Google's consent screen.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	state := uuid.NewString()
	if err := h.cache.Set(ctx, stateKey(sessionID), state, stateTTL).Err(); err != nil {
		handleServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, h.calendar.AuthURL(state), http.StatusFound)
}

// Callback handles GET /oauth2callback. Every failure path lands the browser
// back on the frontend with ?auth=error; only a stored token earns
// ?auth=success.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)
	q := r.URL.Query()

	fail := func(reason string, err error) {
		log.Printf("OAuth callback failed for session %s (%s): %v", sessionID, reason, err)
		http.Redirect(w, r, h.frontendURL+"/?auth=error", http.StatusFound)
	}

	if errParam := q.Get("error"); errParam != "" {
		fail("consent denied", nil)
		return
	}

	stored, err := h.cache.GetDel(ctx, stateKey(sessionID)).Result()
	if err != nil || stored == "" || stored != q.Get("state") {
		fail("state mismatch", err)
		return
	}

	code := q.Get("code")
	if code == "" {
		fail("missing code", nil)
		return
	}

	token, err := h.calendar.Exchange(ctx, code)
	if err != nil {
		fail("code exchange", err)
		return
	}

	if err := h.tokens.Save(ctx, sessionID, token); err != nil {
		fail("token save", err)
		return
	}

	log.Printf("Google Calendar connected for session %s", sessionID)
	http.Redirect(w, r, h.frontendURL+"/?auth=success", http.StatusFound)
}

// Status handles GET /api/v1/auth/status.
func (h *OAuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	token, err := h.tokens.Get(ctx, sessionID)
	authenticated := err == nil && token != nil && h.calendar.ValidateToken(ctx, token)

	writeJSON(w, http.StatusOK, models.AuthStatusResponse{Authenticated: authenticated})
}

// Logout handles POST /api/v1/auth/logout: drop the stored token. The
// session itself stays; only the Google link is severed.
func (h *OAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	if err := h.tokens.Delete(ctx, sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Disconnected from Google Calendar",
	})
}
