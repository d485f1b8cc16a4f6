package models

// CalendarEvent is the single event shape used across the whole pipeline:
// Gemini extraction output, planner input/output, calendar writes and the
// ICS export all speak this struct. Dates are "YYYY-MM-DD" and times are
// 24-hour "HH:MM" strings, matching the JSON the extraction prompt requests.
// An empty StartTime means the event is treated as all-day.
type CalendarEvent struct {
	Title             string   `json:"title"`
	Date              string   `json:"date"`
	StartTime         string   `json:"start_time"`
	EndTime           string   `json:"end_time"`
	Recurring         bool     `json:"recurring"`
	RecurrencePattern string   `json:"recurrence_pattern"`
	Description       string   `json:"description"`
	Type              string   `json:"type"`   // "exam" | "assignment" | "homework" | "class" | "lab" | "office_hours" | "study-session"
	Source            string   `json:"source"` // "extracted" | "auto_generated"
	StudyTips         []string `json:"study_tips,omitempty"`
}

type UploadResponse struct {
	Success bool            `json:"success"`
	Events  []CalendarEvent `json:"events"`
	Cached  bool            `json:"cached"`
}

type GenerateSessionsRequest struct {
	ExamEvent      CalendarEvent   `json:"exam_event"`
	DaysBefore     []int           `json:"days_before,omitempty"`
	Preference     string          `json:"preference,omitempty"`
	ExistingEvents []CalendarEvent `json:"existing_events,omitempty"`
}

type GenerateSessionsResponse struct {
	Success       bool            `json:"success"`
	StudySessions []CalendarEvent `json:"study_sessions"`
}

type AddToCalendarRequest struct {
	Events []CalendarEvent `json:"events"`
}

type AddToCalendarResponse struct {
	Success         bool   `json:"success"`
	AddedEvents     int    `json:"added_events"`
	RecurringEvents int    `json:"recurring_events"`
	SingleEvents    int    `json:"single_events"`
	Message         string `json:"message"`
}

type AuthStatusResponse struct {
	Authenticated bool `json:"authenticated"`
}
