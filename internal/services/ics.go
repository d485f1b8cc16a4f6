package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/kirbacho/DandyHacks-2025/internal/models"
)

// BuildICS renders the event list as an iCalendar file so users who skip the
// Google OAuth flow can still import their schedule anywhere. Events go
// through the same time normalization as calendar writes.
func (s *CalendarService) BuildICS(events []models.CalendarEvent) ([]byte, error) {
	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//DandyHacks//Syllabus Sync//EN")

	now := time.Now().UTC()

	for _, ev := range events {
		if ev.Date == "" {
			continue
		}

		startClock, endClock := normalizeEventTimes(ev)
		start, err := time.ParseInLocation(dateLayout+" "+clockLayout, ev.Date+" "+startClock, loc)
		if err != nil {
			continue
		}
		end, err := time.ParseInLocation(dateLayout+" "+clockLayout, ev.Date+" "+endClock, loc)
		if err != nil {
			continue
		}

		description := ev.Description
		if ev.Type == "study-session" && len(ev.StudyTips) > 0 {
			description += "\n\nStudy Tips:\n• " + strings.Join(ev.StudyTips, "\n• ")
		}

		item := ical.NewEvent()
		item.Props.SetText(ical.PropUID, uuid.New().String())
		item.Props.SetText(ical.PropSummary, ev.Title)
		if description != "" {
			item.Props.SetText(ical.PropDescription, description)
		}
		item.Props.SetDateTime(ical.PropDateTimeStamp, now)
		item.Props.SetDateTime(ical.PropDateTimeStart, start)
		item.Props.SetDateTime(ical.PropDateTimeEnd, end)

		if ev.Recurring && ev.RecurrencePattern == "weekly" {
			rule, err := weeklyRecurrenceRule(ev.Date)
			if err != nil {
				return nil, err
			}
			item.Props.Set(&ical.Prop{
				Name:  ical.PropRecurrenceRule,
				Value: strings.TrimPrefix(rule, "RRULE:"),
			})
		}

		cal.Children = append(cal.Children, item.Component)
	}

	if len(cal.Children) == 0 {
		return nil, fmt.Errorf("no exportable events")
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}

	return buf.Bytes(), nil
}
