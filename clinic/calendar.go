package clinic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BusyInterval is one occupied window on a calendar.
type BusyInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CalendarEvent is the event payload for a booking.
type CalendarEvent struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Timezone    string
}

// CreatedEvent is what the calendar backend returns for a new event.
type CreatedEvent struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

// CalendarService abstracts the calendar backend so tools can be tested
// without network access.
type CalendarService interface {
	// FreeBusy returns the busy intervals per calendar within [timeMin, timeMax].
	FreeBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time, timezone string) (map[string][]BusyInterval, error)
	// CreateEvent inserts an event and notifies attendees.
	CreateEvent(ctx context.Context, calendarID string, event CalendarEvent) (CreatedEvent, error)
	// DeleteEvent removes an event.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// GoogleCalendar talks to the Google Calendar v3 REST API with a bearer
// token.
type GoogleCalendar struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewGoogleCalendar builds a client against baseURL (the production API or a
// test stand-in).
func NewGoogleCalendar(baseURL, token string, timeout time.Duration) *GoogleCalendar {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GoogleCalendar{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GoogleCalendar) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("calendar: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("calendar: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("calendar: %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("calendar: decode response: %w", err)
	}
	return nil
}

// FreeBusy implements CalendarService via POST /freeBusy.
func (g *GoogleCalendar) FreeBusy(
	ctx context.Context,
	calendarIDs []string,
	timeMin, timeMax time.Time,
	timezone string,
) (map[string][]BusyInterval, error) {
	items := make([]map[string]string, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = map[string]string{"id": id}
	}
	body := map[string]any{
		"timeMin":  timeMin.Format(time.RFC3339),
		"timeMax":  timeMax.Format(time.RFC3339),
		"timeZone": timezone,
		"items":    items,
	}

	var decoded struct {
		Calendars map[string]struct {
			Busy []BusyInterval `json:"busy"`
		} `json:"calendars"`
	}
	if err := g.do(ctx, http.MethodPost, "/freeBusy", body, &decoded); err != nil {
		return nil, err
	}

	out := make(map[string][]BusyInterval, len(decoded.Calendars))
	for id, cal := range decoded.Calendars {
		out[id] = cal.Busy
	}
	return out, nil
}

// CreateEvent implements CalendarService via POST /calendars/{id}/events.
// Attendees are notified and reminders are set a day and an hour ahead.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, calendarID string, event CalendarEvent) (CreatedEvent, error) {
	body := map[string]any{
		"summary":     event.Summary,
		"location":    event.Location,
		"description": event.Description,
		"start": map[string]string{
			"dateTime": event.Start.Format(time.RFC3339),
			"timeZone": event.Timezone,
		},
		"end": map[string]string{
			"dateTime": event.End.Format(time.RFC3339),
			"timeZone": event.Timezone,
		},
		"reminders": map[string]any{
			"useDefault": false,
			"overrides": []map[string]any{
				{"method": "email", "minutes": 24 * 60},
				{"method": "popup", "minutes": 60},
			},
		},
	}

	var created CreatedEvent
	path := fmt.Sprintf("/calendars/%s/events?sendUpdates=all", url.PathEscape(calendarID))
	if err := g.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return CreatedEvent{}, err
	}
	return created, nil
}

// DeleteEvent implements CalendarService via DELETE /calendars/{id}/events/{eventID}.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	path := fmt.Sprintf("/calendars/%s/events/%s?sendUpdates=all",
		url.PathEscape(calendarID), url.PathEscape(eventID))
	return g.do(ctx, http.MethodDelete, path, nil, nil)
}

// AddToCalendarLink builds the universal "add to Google Calendar" link a
// patient can open from their confirmation email.
func AddToCalendarLink(summary string, start, end time.Time, details, location, timezone string) string {
	const tfmt = "20060102T150405Z"
	values := url.Values{}
	values.Set("action", "TEMPLATE")
	values.Set("text", summary)
	values.Set("dates", start.UTC().Format(tfmt)+"/"+end.UTC().Format(tfmt))
	values.Set("details", details)
	values.Set("location", location)
	values.Set("ctz", timezone)
	return "https://www.google.com/calendar/render?" + values.Encode()
}
