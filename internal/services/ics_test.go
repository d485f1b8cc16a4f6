package services

import (
	"strings"
	"testing"

	"github.com/kirbacho/DandyHacks-2025/internal/models"
)

func TestBuildICS(t *testing.T) {
	svc := NewCalendarService("id", "secret", "http://localhost:8080/oauth2callback", "America/New_York")

	data, err := svc.BuildICS([]models.CalendarEvent{
		{
			Title:     "Midterm Exam",
			Date:      "2025-03-15",
			StartTime: "14:00",
			EndTime:   "16:00",
			Type:      "exam",
		},
		{
			Title:             "CS101 Lecture",
			Date:              "2025-01-20",
			StartTime:         "10:00",
			EndTime:           "11:30",
			Recurring:         true,
			RecurrencePattern: "weekly",
			Type:              "class",
		},
	})
	if err != nil {
		t.Fatalf("BuildICS returned error: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Error("Output is not a VCALENDAR")
	}
	if strings.Count(out, "BEGIN:VEVENT") != 2 {
		t.Errorf("Expected 2 VEVENT blocks, got %d", strings.Count(out, "BEGIN:VEVENT"))
	}
	if !strings.Contains(out, "SUMMARY:Midterm Exam") {
		t.Error("Missing exam summary")
	}
	if !strings.Contains(out, "FREQ=WEEKLY") {
		t.Error("Missing weekly recurrence rule")
	}
}

func TestBuildICS_SkipsDatelessEvents(t *testing.T) {
	svc := NewCalendarService("id", "secret", "http://localhost:8080/oauth2callback", "UTC")

	if _, err := svc.BuildICS([]models.CalendarEvent{{Title: "No date"}}); err == nil {
		t.Error("Expected error when nothing is exportable")
	}
}
