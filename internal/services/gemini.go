package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"log"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kirbacho/DandyHacks-2025/internal/models"
)

const (
	// Gemini responses beyond this many events are discarded; a syllabus
	// should not need more and runaway extractions bloat the review UI.
	maxExtractedEvents = 25

	// Text extraction truncates the syllabus before prompting.
	maxPromptChars = 6000

	maxStudyTips = 3
)

// eventExtractionPrompt asks for single and recurring events in one pass so
// weekly lectures come back alongside exams and due dates.
const eventExtractionPrompt = `
Extract academic events from the syllabus. Identify which events are recurring weekly.

For SINGLE events (exams, major deadlines, assignments, homework):
{"title":"","date":"YYYY-MM-DD","start_time":"","end_time":"","recurring":false,"recurrence_pattern":"","description":"","type":"exam/assignment/homework"}

For RECURRING weekly events (classes, labs, office hours):
{"title":"","date":"YYYY-MM-DD","start_time":"","end_time":"","recurring":true,"recurrence_pattern":"weekly","description":"","type":"class/lab/office_hours"}

Return ONLY valid JSON in this form:
{"events":[
  {"title":"Midterm Exam","date":"2025-03-15","start_time":"14:00","end_time":"16:00","recurring":false,"recurrence_pattern":"","description":"","type":"exam"},
  {"title":"Homework 1 Due","date":"2025-02-10","start_time":"23:59","end_time":"","recurring":false,"recurrence_pattern":"","description":"","type":"assignment"},
  {"title":"CS101 Lecture","date":"2025-01-20","start_time":"10:00","end_time":"11:30","recurring":true,"recurrence_pattern":"weekly","description":"","type":"class"}
]}
Focus on major events and weekly recurring schedules.
`

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.5-flash")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// ExtractEventsFromText runs the extraction prompt over syllabus text.
func (s *GeminiService) ExtractEventsFromText(ctx context.Context, text string) ([]models.CalendarEvent, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(eventExtractionPrompt),
		genai.Text(text),
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	events, err := parseEventsJSON(extractText(resp))
	if err != nil {
		return nil, err
	}

	log.Printf("Extracted %d events from syllabus text (%d recurring)", len(events), countRecurring(events))
	return events, nil
}

// ExtractEventsFromFile sends the raw file bytes through Gemini's multimodal
// path. Used for images and for PDFs that yield no extractable text.
func (s *GeminiService) ExtractEventsFromFile(ctx context.Context, data []byte, mimeType string) ([]models.CalendarEvent, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	if len(data) == 0 {
		return nil, fmt.Errorf("file payload is empty")
	}

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(eventExtractionPrompt),
		genai.Blob{MIMEType: mimeType, Data: data},
	)
	if err != nil {
		return nil, fmt.Errorf("Gemini vision error: %w", err)
	}

	events, err := parseEventsJSON(extractText(resp))
	if err != nil {
		return nil, err
	}

	log.Printf("Extracted %d events using vision processing", len(events))
	return events, nil
}

// GenerateStudyTips asks for three actionable tips for a deadline event.
// Callers are expected to fall back to planner.FallbackTips on any error.
func (s *GeminiService) GenerateStudyTips(ctx context.Context, event models.CalendarEvent) ([]string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	description := event.Description
	if description == "" {
		description = "No description provided"
	}
	eventType := event.Type
	if eventType == "" {
		eventType = "general"
	}

	prompt := fmt.Sprintf(`Generate 3 specific, actionable study tips for this academic event:

Event: %s
Description: %s
Type: %s

Provide ONLY a JSON array with 3 study tips as strings. No explanations, no markdown, just the array.

Example: ["Review key concepts from chapters 1-5", "Practice with past exam questions", "Create summary sheets for quick review"]`,
		event.Title, description, eventType)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	tips, err := parseTipsJSON(extractText(resp))
	if err != nil {
		return nil, err
	}

	if len(tips) > maxStudyTips {
		tips = tips[:maxStudyTips]
	}
	return tips, nil
}

// ListModels returns the names of Gemini models that support content
// generation. Backs the `models` CLI command.
func (s *GeminiService) ListModels(ctx context.Context) ([]string, error) {
	var names []string

	it := s.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}

		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				names = append(names, m.Name)
				break
			}
		}
	}

	return names, nil
}

// SampleEvents is the demo fallback used when vision extraction fails
// outright, so the review UI always has something to show.
func SampleEvents() []models.CalendarEvent {
	return []models.CalendarEvent{
		{
			Title:       "Midterm Exam",
			Date:        "2025-03-15",
			StartTime:   "14:00",
			EndTime:     "16:00",
			Description: "Midterm examination covering chapters 1-5",
			Type:        "exam",
			Source:      "extracted",
		},
		{
			Title:       "Homework 1 Due",
			Date:        "2025-02-10",
			StartTime:   "20:00",
			EndTime:     "21:00",
			Description: "Submit homework assignment 1",
			Type:        "assignment",
			Source:      "extracted",
		},
		{
			Title:             "CS101 Lecture",
			Date:              "2025-01-20",
			StartTime:         "10:00",
			EndTime:           "11:30",
			Recurring:         true,
			RecurrencePattern: "weekly",
			Description:       "Weekly class lecture",
			Type:              "class",
			Source:            "extracted",
		},
	}
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseEventsJSON decodes the {"events":[...]} envelope the prompt requests.
// If the model wraps or mangles the envelope, it rescues the first JSON
// object found in the text.
func parseEventsJSON(raw string) ([]models.CalendarEvent, error) {
	raw = stripCodeFence(raw)

	var envelope struct {
		Events []models.CalendarEvent `json:"events"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse Gemini response as JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &envelope); err != nil {
			return nil, fmt.Errorf("failed to parse Gemini response as JSON: %w", err)
		}
	}

	events := envelope.Events
	if len(events) > maxExtractedEvents {
		events = events[:maxExtractedEvents]
	}

	for i := range events {
		events[i].Source = "extracted"
	}

	return events, nil
}

func parseTipsJSON(raw string) ([]string, error) {
	raw = stripCodeFence(raw)

	var tips []string
	if err := json.Unmarshal([]byte(raw), &tips); err != nil {
		start := strings.Index(raw, "[")
		end := strings.LastIndex(raw, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse tips as JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &tips); err != nil {
			return nil, fmt.Errorf("failed to parse tips as JSON: %w", err)
		}
	}

	if len(tips) == 0 {
		return nil, fmt.Errorf("Gemini returned no study tips")
	}

	return tips, nil
}

func countRecurring(events []models.CalendarEvent) int {
	n := 0
	for _, e := range events {
		if e.Recurring {
			n++
		}
	}
	return n
}
