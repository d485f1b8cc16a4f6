package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kirbacho/DandyHacks-2025/internal/handlers"
	"github.com/kirbacho/DandyHacks-2025/internal/middleware"
	"github.com/kirbacho/DandyHacks-2025/internal/websocket"
)

func New(
	session *middleware.Session,
	syllabusHandler *handlers.SyllabusHandler,
	sessionsHandler *handlers.SessionsHandler,
	calendarHandler *handlers.CalendarHandler,
	oauthHandler *handlers.OAuthHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(session.Middleware)

	// Uploads hit Gemini; keep one IP from draining the quota.
	uploadLimiter := middleware.NewRateLimiter(10, time.Minute)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// OAuth browser flow lives at the root so the redirect URL registered
	// with Google stays short.
	r.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Get("/auth/google", oauthHandler.Start)
		r.Get("/oauth2callback", oauthHandler.Callback)
	})

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/syllabus", func(r chi.Router) {
			r.Get("/supported-formats", syllabusHandler.SupportedFormats)

			r.Group(func(r chi.Router) {
				r.Use(uploadLimiter.Middleware)
				r.Post("/upload", syllabusHandler.Upload)
			})
		})

		r.Route("/study-sessions", func(r chi.Router) {
			r.Post("/generate", sessionsHandler.Generate)
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/events", calendarHandler.Events)
			r.Post("/add", calendarHandler.Add)
			r.Post("/export.ics", calendarHandler.ExportICS)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", oauthHandler.Status)
			r.Post("/logout", oauthHandler.Logout)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/{id}", jobHandler.Get)
		})

		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
