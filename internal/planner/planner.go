// Package planner derives study and work sessions from deadline events
// extracted out of a syllabus. It is pure date arithmetic over the shared
// CalendarEvent model; all I/O (Gemini tips, existing-event lookups) happens
// in the callers.
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirbacho/DandyHacks-2025/internal/models"
)

const dateLayout = "2006-01-02"

// Slot is a candidate start/end time-of-day pair for a generated session.
type Slot struct {
	Start string
	End   string
}

// Default and fallback slots for generated sessions. The fallback depends on
// the caller's stated preference: evening people get pushed later, everyone
// else gets pulled earlier.
var (
	defaultSlot         = Slot{Start: "19:00", End: "21:00"}
	eveningFallbackSlot = Slot{Start: "20:00", End: "22:00"}
	earlyFallbackSlot   = Slot{Start: "18:00", End: "20:00"}
)

// FallbackTips is used whenever AI tip generation is unavailable. Sessions
// always carry a usable tip list; callers never see a tip error.
var FallbackTips = []string{
	"Review key concepts and materials",
	"Practice with relevant exercises",
	"Create study notes and summaries",
	"Get a full night's sleep before the deadline",
}

var (
	examKeywords = []string{"exam", "midterm", "final", "test"}
	workKeywords = []string{"project", "paper", "assignment"}
)

// Kind classifies a deadline event by its title.
type Kind int

const (
	KindNone Kind = iota
	KindExam
	KindWork
)

// Classify matches the title against the deadline keyword sets,
// case-insensitively. Exam keywords win over work keywords.
func Classify(title string) Kind {
	lower := strings.ToLower(title)
	for _, kw := range examKeywords {
		if strings.Contains(lower, kw) {
			return KindExam
		}
	}
	for _, kw := range workKeywords {
		if strings.Contains(lower, kw) {
			return KindWork
		}
	}
	return KindNone
}

// IsReviewSession reports whether a title already names a review session.
// Session generation skips these to avoid planning study time for study
// time.
func IsReviewSession(title string) bool {
	return strings.Contains(strings.ToLower(title), "review")
}

// DefaultOffsets returns the day-before offsets used when the caller does
// not supply its own list: three study sessions for exams, two work blocks
// for projects and papers.
func DefaultOffsets(kind Kind) []int {
	if kind == KindExam {
		return []int{7, 3, 1}
	}
	return []int{5, 2}
}

// PickSlot applies the slot-selection rule: the default evening slot unless
// some existing event on studyDate starts exactly at the default start time,
// in which case the preference-dependent fallback slot is used.
//
// This is a single-pass check. It only compares start times against the
// default slot; it does not re-check the fallback slot, consider end times,
// or handle several conflicts on the same day. Changing the rule would
// change every generated schedule, so it stays narrow.
func PickSlot(existing []models.CalendarEvent, studyDate, preference string) Slot {
	for _, ev := range existing {
		if ev.Date == studyDate && ev.StartTime == defaultSlot.Start {
			if preference == "evening" {
				return eveningFallbackSlot
			}
			return earlyFallbackSlot
		}
	}
	return defaultSlot
}

// FocusLabel maps an offset to a human-readable session focus. The mapping
// is keyed on the specific offset values of the two blessed presets
// ([7,3,1] and [5,2]); any other offset list degrades to the generic label.
func FocusLabel(offsets []int, day int) string {
	switch len(offsets) {
	case 3:
		switch day {
		case 7:
			return "Comprehensive Review"
		case 3:
			return "Practice Problems"
		default:
			return "Final Review"
		}
	case 2:
		if day == 5 {
			return "Concept Review"
		}
		return "Practice Session"
	default:
		return "Study Session"
	}
}

// Plan produces one generated session per offset, in offset order, for the
// given deadline event. Exam-kind deadlines get focus-labeled study sessions;
// everything else gets work blocks. Inputs are never mutated.
func Plan(deadline models.CalendarEvent, existing []models.CalendarEvent, offsets []int, preference string, tips []string) ([]models.CalendarEvent, error) {
	deadlineDate, err := time.Parse(dateLayout, deadline.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid deadline date %q: %w", deadline.Date, err)
	}

	kind := Classify(deadline.Title)
	if len(tips) == 0 {
		tips = FallbackTips
	}

	sessions := make([]models.CalendarEvent, 0, len(offsets))
	for _, d := range offsets {
		studyDate := deadlineDate.AddDate(0, 0, -d).Format(dateLayout)
		slot := PickSlot(existing, studyDate, preference)

		var title, description string
		if kind == KindExam {
			title = fmt.Sprintf("%s for %s", FocusLabel(offsets, d), deadline.Title)
			description = fmt.Sprintf("Study session for %s", deadline.Title)
		} else {
			title = fmt.Sprintf("Work on %s", deadline.Title)
			description = fmt.Sprintf("Work block for %s", deadline.Title)
		}

		sessions = append(sessions, models.CalendarEvent{
			Title:       title,
			Date:        studyDate,
			StartTime:   slot.Start,
			EndTime:     slot.End,
			Description: description,
			Type:        "study-session",
			Source:      "auto_generated",
			StudyTips:   tips,
		})
	}

	return sessions, nil
}
