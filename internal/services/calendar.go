package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/kirbacho/DandyHacks-2025/internal/models"
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"

	// Recurring syllabus events (weekly lectures, labs) run for roughly one
	// semester from their first occurrence.
	semesterWeeks = 16
)

// CalendarService wraps the Google Calendar API: the OAuth web flow plus
// reading and writing events on the user's primary calendar.
type CalendarService struct {
	oauthConfig *oauth2.Config
	timezone    string
}

func NewCalendarService(clientID, clientSecret, redirectURL, timezone string) *CalendarService {
	return &CalendarService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		},
		timezone: timezone,
	}
}

// AuthURL builds the consent URL. Offline access gives us a refresh token so
// the session stays authorized after the access token expires.
func (s *CalendarService) AuthURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (s *CalendarService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth code exchange failed: %w", err)
	}
	return token, nil
}

// Service builds an authenticated Calendar client. The returned TokenSource
// refreshes transparently; callers should persist ts.Token() afterwards so
// refreshed credentials survive the request.
func (s *CalendarService) Service(ctx context.Context, token *oauth2.Token) (*calendar.Service, oauth2.TokenSource, error) {
	ts := s.oauthConfig.TokenSource(ctx, token)
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, ts, nil
}

// ValidateToken reports whether the token can still mint an access token.
func (s *CalendarService) ValidateToken(ctx context.Context, token *oauth2.Token) bool {
	_, err := s.oauthConfig.TokenSource(ctx, token).Token()
	return err == nil
}

// UpcomingEvents fetches the next `days` of events from the primary calendar
// and maps them into the internal event shape for conflict checking.
func (s *CalendarService) UpcomingEvents(ctx context.Context, svc *calendar.Service, days int) ([]models.CalendarEvent, error) {
	now := time.Now().UTC()
	tmin := now.Format(time.RFC3339)
	tmax := now.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)

	list, err := svc.Events.List("primary").
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	var events []models.CalendarEvent
	for _, item := range list.Items {
		ev := models.CalendarEvent{Title: item.Summary, Description: item.Description}

		switch {
		case item.Start == nil:
			continue
		case item.Start.DateTime != "":
			start, err := time.Parse(time.RFC3339, item.Start.DateTime)
			if err != nil {
				continue
			}
			ev.Date = start.Format(dateLayout)
			ev.StartTime = start.Format(clockLayout)
			if item.End != nil && item.End.DateTime != "" {
				if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
					ev.EndTime = end.Format(clockLayout)
				}
			}
		case item.Start.Date != "":
			// All-day event: date only, no times.
			ev.Date = item.Start.Date
		default:
			continue
		}

		events = append(events, ev)
	}

	log.Printf("Fetched %d upcoming events from Google Calendar", len(events))
	return events, nil
}

// InsertEvents writes the event list into the primary calendar. Individual
// failures are skipped so one bad event does not abort the batch; the counts
// in the response tell the user what landed.
func (s *CalendarService) InsertEvents(ctx context.Context, svc *calendar.Service, events []models.CalendarEvent) models.AddToCalendarResponse {
	added := 0
	for _, ev := range events {
		body, err := s.buildCalendarEvent(ev)
		if err != nil {
			log.Printf("Skipping event %q: %v", ev.Title, err)
			continue
		}

		if _, err := svc.Events.Insert("primary", body).Context(ctx).Do(); err != nil {
			log.Printf("Failed to add event %q: %v", ev.Title, err)
			continue
		}
		added++
	}

	recurring := 0
	for _, ev := range events {
		if ev.Recurring {
			recurring++
		}
	}
	single := len(events) - recurring

	return models.AddToCalendarResponse{
		Success:         true,
		AddedEvents:     added,
		RecurringEvents: recurring,
		SingleEvents:    single,
		Message:         fmt.Sprintf("Added %d events (%d recurring, %d single) to calendar", added, recurring, single),
	}
}

func (s *CalendarService) buildCalendarEvent(ev models.CalendarEvent) (*calendar.Event, error) {
	if ev.Date == "" {
		return nil, fmt.Errorf("event has no date")
	}

	start, end := normalizeEventTimes(ev)

	description := ev.Description
	if ev.Type == "study-session" && len(ev.StudyTips) > 0 {
		description += "\n\nStudy Tips:\n• " + strings.Join(ev.StudyTips, "\n• ")
	}

	body := &calendar.Event{
		Summary:     ev.Title,
		Description: description,
		Start: &calendar.EventDateTime{
			DateTime: fmt.Sprintf("%sT%s:00", ev.Date, start),
			TimeZone: s.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: fmt.Sprintf("%sT%s:00", ev.Date, end),
			TimeZone: s.timezone,
		},
	}

	if ev.Recurring && ev.RecurrencePattern == "weekly" {
		rule, err := weeklyRecurrenceRule(ev.Date)
		if err != nil {
			return nil, err
		}
		body.Recurrence = []string{rule}
		log.Printf("Adding recurring event: %s", ev.Title)
	}

	return body, nil
}

// weeklyRecurrenceRule builds the RRULE line for a weekly event ending one
// semester after its first occurrence.
func weeklyRecurrenceRule(startDate string) (string, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return "", fmt.Errorf("invalid recurring event date %q: %w", startDate, err)
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:  rrule.WEEKLY,
		Until: start.AddDate(0, 0, semesterWeeks*7).UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build recurrence rule: %w", err)
	}

	return "RRULE:" + rule.String(), nil
}

// normalizeEventTimes fills in and repairs start/end times before the event
// reaches a calendar. Assignments due "23:59" become a sensible evening
// block, missing ends get a one-hour default, and an end at or before the
// start is bumped an hour past it.
func normalizeEventTimes(ev models.CalendarEvent) (string, string) {
	start := ev.StartTime
	end := ev.EndTime

	if start == "" {
		if ev.Type == "assignment" || ev.Type == "homework" {
			start = "20:00"
			end = "21:00"
		} else {
			start = "10:00"
			end = "11:00"
		}
	}

	if end == "" {
		switch {
		case ev.Type == "assignment" || ev.Type == "homework":
			end = "21:00"
		case strings.Contains(ev.Type, "exam"):
			end = "12:00"
		default:
			end = addHour(start)
		}
	}

	if startT, err := time.Parse(clockLayout, start); err == nil {
		if endT, err := time.Parse(clockLayout, end); err == nil && !endT.After(startT) {
			end = addHour(start)
		}
	}

	if start == "23:59" || end == "23:59" {
		start = "20:00"
		end = "21:00"
	}

	return start, end
}

func addHour(clock string) string {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return "11:00"
	}
	return t.Add(time.Hour).Format(clockLayout)
}
