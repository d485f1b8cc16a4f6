package services

import (
	"testing"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain json", `{"events":[]}`, `{"events":[]}`},
		{"json fence", "```json\n{\"events\":[]}\n```", `{"events":[]}`},
		{"bare fence", "```\n{\"events\":[]}\n```", `{"events":[]}`},
		{"surrounding whitespace", "  {\"events\":[]}  ", `{"events":[]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCodeFence(tc.input); got != tc.expected {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestParseEventsJSON(t *testing.T) {
	raw := "```json\n" + `{"events":[
		{"title":"Midterm Exam","date":"2025-03-15","start_time":"14:00","end_time":"16:00","recurring":false,"recurrence_pattern":"","description":"","type":"exam"},
		{"title":"CS101 Lecture","date":"2025-01-20","start_time":"10:00","end_time":"11:30","recurring":true,"recurrence_pattern":"weekly","description":"","type":"class"}
	]}` + "\n```"

	events, err := parseEventsJSON(raw)
	if err != nil {
		t.Fatalf("parseEventsJSON returned error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Title != "Midterm Exam" || events[0].Type != "exam" {
		t.Errorf("Unexpected first event: %+v", events[0])
	}
	if !events[1].Recurring || events[1].RecurrencePattern != "weekly" {
		t.Errorf("Expected recurring weekly lecture, got %+v", events[1])
	}
	for i, ev := range events {
		if ev.Source != "extracted" {
			t.Errorf("Event %d source = %q, want extracted", i, ev.Source)
		}
	}
}

func TestParseEventsJSON_RescuesWrappedObject(t *testing.T) {
	raw := `Here is the schedule you asked for:
{"events":[{"title":"Final Exam","date":"2025-05-10","start_time":"09:00","end_time":"11:00","recurring":false,"recurrence_pattern":"","description":"","type":"exam"}]}
Let me know if you need anything else.`

	events, err := parseEventsJSON(raw)
	if err != nil {
		t.Fatalf("parseEventsJSON returned error: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Final Exam" {
		t.Errorf("Rescue parse failed: %+v", events)
	}
}

func TestParseEventsJSON_CapsEventCount(t *testing.T) {
	raw := `{"events":[`
	for i := 0; i < 30; i++ {
		if i > 0 {
			raw += ","
		}
		raw += `{"title":"Event","date":"2025-01-01","start_time":"","end_time":"","recurring":false,"recurrence_pattern":"","description":"","type":"homework"}`
	}
	raw += `]}`

	events, err := parseEventsJSON(raw)
	if err != nil {
		t.Fatalf("parseEventsJSON returned error: %v", err)
	}
	if len(events) != maxExtractedEvents {
		t.Errorf("Expected cap of %d events, got %d", maxExtractedEvents, len(events))
	}
}

func TestParseEventsJSON_Garbage(t *testing.T) {
	if _, err := parseEventsJSON("the syllabus contains no dates"); err == nil {
		t.Error("Expected error for non-JSON response")
	}
}

func TestParseTipsJSON(t *testing.T) {
	tips, err := parseTipsJSON("```json\n[\"Review chapters 1-5\",\"Do practice problems\",\"Make a cheat sheet\"]\n```")
	if err != nil {
		t.Fatalf("parseTipsJSON returned error: %v", err)
	}
	if len(tips) != 3 || tips[0] != "Review chapters 1-5" {
		t.Errorf("Unexpected tips: %v", tips)
	}
}

func TestParseTipsJSON_RescuesWrappedArray(t *testing.T) {
	tips, err := parseTipsJSON(`Sure! ["One","Two"] hope that helps`)
	if err != nil {
		t.Fatalf("parseTipsJSON returned error: %v", err)
	}
	if len(tips) != 2 {
		t.Errorf("Expected 2 tips, got %v", tips)
	}
}

func TestParseTipsJSON_Empty(t *testing.T) {
	if _, err := parseTipsJSON("[]"); err == nil {
		t.Error("Expected error for empty tip array")
	}
	if _, err := parseTipsJSON("no tips today"); err == nil {
		t.Error("Expected error for non-JSON response")
	}
}

func TestSampleEvents(t *testing.T) {
	events := SampleEvents()
	if len(events) != 3 {
		t.Fatalf("Expected 3 sample events, got %d", len(events))
	}

	recurring := 0
	for _, ev := range events {
		if ev.Source != "extracted" {
			t.Errorf("Sample event %q source = %q, want extracted", ev.Title, ev.Source)
		}
		if ev.Recurring {
			recurring++
		}
	}
	if recurring != 1 {
		t.Errorf("Expected 1 recurring sample event, got %d", recurring)
	}
}
