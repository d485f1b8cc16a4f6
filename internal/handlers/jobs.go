package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kirbacho/DandyHacks-2025/internal/middleware"
	"github.com/kirbacho/DandyHacks-2025/internal/repository"
	"github.com/kirbacho/DandyHacks-2025/internal/services"
)

type JobHandler struct {
	jobs *repository.JobRepo
}

func NewJobHandler(jobs *repository.JobRepo) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Get handles GET /api/v1/jobs/{id}. Jobs belong to the session that queued
// them; anything else is reported as not found rather than forbidden.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"id": "Invalid job ID"}, r))
		return
	}

	job, err := h.jobs.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		handleServiceError(w, r, &services.NotFoundError{Message: "Job not found"})
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if job.SessionID != sessionID {
		handleServiceError(w, r, &services.NotFoundError{Message: "Job not found"})
		return
	}

	writeJSON(w, http.StatusOK, job)
}
