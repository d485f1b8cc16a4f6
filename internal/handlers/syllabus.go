package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirbacho/DandyHacks-2025/internal/middleware"
	"github.com/kirbacho/DandyHacks-2025/internal/models"
	"github.com/kirbacho/DandyHacks-2025/internal/planner"
	"github.com/kirbacho/DandyHacks-2025/internal/repository"
	"github.com/kirbacho/DandyHacks-2025/internal/services"
)

const (
	maxUploadBytes = 20 << 20 // 20 MB

	// Below this many extracted characters the text is assumed to be noise
	// (a scanned PDF, a cover page) and the file goes to vision instead.
	minUsableTextChars = 100
)

// Extensions we accept, and whether the raw bytes can go through Gemini's
// multimodal path when text extraction comes up short.
var uploadTypes = map[string]struct {
	mime   string
	vision bool
}{
	".pdf":  {"application/pdf", true},
	".png":  {"image/png", true},
	".jpg":  {"image/jpeg", true},
	".jpeg": {"image/jpeg", true},
	".webp": {"image/webp", true},
	".txt":  {"text/plain", false},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", false},
}

type SyllabusHandler struct {
	extract  *services.FileExtractService
	gemini   *services.GeminiService
	cache    *redis.Client
	jobRepo  *repository.JobRepo
	cacheTTL time.Duration
}

func NewSyllabusHandler(extract *services.FileExtractService, gemini *services.GeminiService, cache *redis.Client, jobRepo *repository.JobRepo, cacheTTL time.Duration) *SyllabusHandler {
	return &SyllabusHandler{
		extract:  extract,
		gemini:   gemini,
		cache:    cache,
		jobRepo:  jobRepo,
		cacheTTL: cacheTTL,
	}
}

// Upload handles POST /api/v1/syllabus/upload. The file never touches disk:
// it is read into memory, fingerprinted for the extraction cache, and routed
// to text or vision extraction depending on what it contains.
func (h *SyllabusHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File exceeds the 20MB upload limit", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "No file provided"}, r))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	kind, ok := uploadTypes[ext]
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "Unsupported file type: " + ext}, r))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "Could not read uploaded file"}, r))
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "Uploaded file is empty"}, r))
		return
	}

	// Extension lies are cheap; the content sniff is not. Reject files whose
	// bytes disagree with the claimed type for the binary formats.
	sniffed := http.DetectContentType(data)
	if kind.vision && ext != ".pdf" && !strings.HasPrefix(sniffed, "image/") {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "File content does not match its extension"}, r))
		return
	}

	cacheKey := services.ExtractionCacheKey(data)
	if cached, err := h.cache.Get(ctx, cacheKey).Bytes(); err == nil {
		var events []models.CalendarEvent
		if json.Unmarshal(cached, &events) == nil {
			log.Printf("Extraction cache hit for %s", header.Filename)
			h.enqueueTipJobs(r, events)
			writeJSON(w, http.StatusOK, models.UploadResponse{Success: true, Events: events, Cached: true})
			return
		}
	}

	events, fromGemini := h.extractEvents(w, r, data, ext, kind.mime, sniffed, header.Filename)
	if events == nil {
		// extractEvents already wrote the error response
		return
	}

	if fromGemini && len(events) > 0 {
		if payload, err := json.Marshal(events); err == nil {
			if err := h.cache.Set(ctx, cacheKey, payload, h.cacheTTL).Err(); err != nil {
				log.Printf("Failed to cache extraction result: %v", err)
			}
		}
	}

	h.enqueueTipJobs(r, events)
	writeJSON(w, http.StatusOK, models.UploadResponse{Success: true, Events: events, Cached: false})
}

// extractEvents picks text or vision extraction. Returns (nil, false) only
// after writing an error response itself. fromGemini is false when the result
// is the sample fallback and must not be cached.
func (h *SyllabusHandler) extractEvents(w http.ResponseWriter, r *http.Request, data []byte, ext, declaredMIME, sniffedMIME, filename string) ([]models.CalendarEvent, bool) {
	ctx := r.Context()

	var text string
	if ext == ".txt" || ext == ".pdf" || ext == ".docx" {
		extracted, err := h.extract.ExtractText(data, filename)
		if err != nil {
			log.Printf("Text extraction failed for %s: %v", filename, err)
		} else {
			text = extracted
		}
	}

	if len(text) > minUsableTextChars {
		events, err := h.gemini.ExtractEventsFromText(ctx, text)
		if err != nil {
			// Soft failure: the user reviews an empty list and can retry,
			// rather than losing the upload to a transient Gemini error.
			log.Printf("Gemini text extraction failed for %s: %v", filename, err)
			return []models.CalendarEvent{}, false
		}
		if events == nil {
			events = []models.CalendarEvent{}
		}
		return events, true
	}

	visionMIME := declaredMIME
	if strings.HasPrefix(sniffedMIME, "image/") {
		visionMIME = sniffedMIME
	}

	canVision := uploadTypes[ext].vision
	if !canVision {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "No extractable text found in file"}, r))
		return nil, false
	}

	events, err := h.gemini.ExtractEventsFromFile(ctx, data, visionMIME)
	if err != nil {
		log.Printf("Vision extraction failed for %s, using sample events: %v", filename, err)
		return services.SampleEvents(), false
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	return events, true
}

// enqueueTipJobs queues async tip pre-generation for every deadline event in
// the extraction, so tips are usually ready by the time the user asks for
// study sessions. Failures are logged and dropped; the generate endpoint has
// its own fallback chain.
func (h *SyllabusHandler) enqueueTipJobs(r *http.Request, events []models.CalendarEvent) {
	ctx := r.Context()
	sessionID := middleware.GetSessionID(ctx)

	for _, ev := range events {
		if planner.Classify(ev.Title) == planner.KindNone || planner.IsReviewSession(ev.Title) {
			continue
		}

		config, err := json.Marshal(ev)
		if err != nil {
			continue
		}

		job := &models.Job{
			SessionID:  sessionID,
			Type:       "tip-generation",
			Reference:  ev.Title + "|" + ev.Date,
			ConfigJSON: config,
		}
		if err := h.jobRepo.Create(ctx, job); err != nil {
			log.Printf("Failed to create tip job for %q: %v", ev.Title, err)
			continue
		}

		payload, err := json.Marshal(job)
		if err != nil {
			continue
		}
		if err := h.cache.LPush(ctx, services.TipQueue, payload).Err(); err != nil {
			log.Printf("Failed to enqueue tip job %s: %v", job.ID, err)
		}
	}
}

// SupportedFormats handles GET /api/v1/syllabus/supported-formats.
func (h *SyllabusHandler) SupportedFormats(w http.ResponseWriter, r *http.Request) {
	exts := make([]string, 0, len(uploadTypes))
	for ext := range uploadTypes {
		exts = append(exts, ext)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats":        exts,
		"max_size_bytes": maxUploadBytes,
	})
}
