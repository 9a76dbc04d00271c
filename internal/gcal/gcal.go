// Package gcal talks to the Google Calendar v3 REST API with a bearer token
// supplied by the caller.
package gcal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"actcal/internal/errs"
	appLog "actcal/internal/log"
	"actcal/internal/model"
)

const (
	DefaultBaseURL    = "https://www.googleapis.com/calendar/v3"
	DefaultCalendarID = "primary"

	// maxPages bounds pagination for a single list call.
	maxPages = 20
)

// Client reads and writes events of one calendar.
type Client struct {
	client     *http.Client
	baseURL    string
	calendarID string
}

// NewClient creates a Client. Empty arguments fall back to the public API
// and the user's primary calendar.
func NewClient(baseURL, calendarID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	return &Client{
		client:     &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		calendarID: calendarID,
	}
}

type eventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventResource struct {
	ID          string        `json:"id,omitempty"`
	Summary     string        `json:"summary"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	Start       eventDateTime `json:"start"`
	End         eventDateTime `json:"end"`
}

type eventList struct {
	Items         []eventResource `json:"items"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

func (c *Client) eventsURL() string {
	return c.baseURL + "/calendars/" + url.PathEscape(c.calendarID) + "/events"
}

// CreateEvent inserts ev as a timed event.
func (c *Client) CreateEvent(ctx context.Context, accessToken string, ev model.DerivedEvent) error {
	body, err := sonic.Marshal(&eventResource{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       eventDateTime{DateTime: ev.Window.Start.UTC().Format(time.RFC3339)},
		End:         eventDateTime{DateTime: ev.Window.End.UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.eventsURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Unavailable(errs.SourceCalendar, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errs.Unavailable(errs.SourceCalendar, resp.StatusCode,
			fmt.Errorf("failed to add event: %s - %s", resp.Status, strings.TrimSpace(string(msg))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	appLog.Debug("calendar event created", "calendar", c.calendarID, "summary", ev.Summary,
		"start", ev.Window.Start.Format(time.RFC3339))
	return nil
}

// ListEvents returns the single (recurrence-expanded) events overlapping w,
// ordered by start time.
func (c *Client) ListEvents(ctx context.Context, accessToken string, w model.TimeWindow) ([]model.CalendarEventRef, error) {
	out := make([]model.CalendarEventRef, 0)
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("timeMin", w.Start.UTC().Format(time.RFC3339))
		q.Set("timeMax", w.End.UTC().Format(time.RFC3339))
		q.Set("singleEvents", "true")
		q.Set("orderBy", "startTime")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		list, err := c.listPage(ctx, accessToken, c.eventsURL()+"?"+q.Encode())
		if err != nil {
			return nil, err
		}
		for _, item := range list.Items {
			ref, err := toRef(item)
			if err != nil {
				return nil, errs.Malformed(errs.SourceCalendar, err)
			}
			out = append(out, ref)
		}
		if list.NextPageToken == "" {
			return out, nil
		}
		pageToken = list.NextPageToken
	}

	return nil, errs.Malformed(errs.SourceCalendar,
		fmt.Errorf("event list still paging after %d pages", maxPages))
}

func (c *Client) listPage(ctx context.Context, accessToken, endpoint string) (eventList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return eventList{}, fmt.Errorf("create list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return eventList{}, errs.Unavailable(errs.SourceCalendar, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eventList{}, errs.Unavailable(errs.SourceCalendar, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return eventList{}, errs.Unavailable(errs.SourceCalendar, resp.StatusCode,
			fmt.Errorf("google calendar API failed: %s - %s", resp.Status, strings.TrimSpace(string(data))))
	}

	var list eventList
	if err := sonic.Unmarshal(data, &list); err != nil {
		return eventList{}, errs.Malformed(errs.SourceCalendar, err)
	}
	return list, nil
}

func toRef(item eventResource) (model.CalendarEventRef, error) {
	start, err := toEventTime(item.Start)
	if err != nil {
		return model.CalendarEventRef{}, fmt.Errorf("event %s start: %w", item.ID, err)
	}
	end, err := toEventTime(item.End)
	if err != nil {
		return model.CalendarEventRef{}, fmt.Errorf("event %s end: %w", item.ID, err)
	}
	return model.CalendarEventRef{
		ID:          item.ID,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Start:       start,
		End:         end,
	}, nil
}

func toEventTime(v eventDateTime) (model.EventTime, error) {
	if v.DateTime != "" {
		t, err := time.Parse(time.RFC3339, v.DateTime)
		if err != nil {
			return model.EventTime{}, err
		}
		return model.EventTime{DateTime: t}, nil
	}
	if v.Date != "" {
		if _, err := time.Parse("2006-01-02", v.Date); err != nil {
			return model.EventTime{}, err
		}
		return model.EventTime{Date: v.Date}, nil
	}
	return model.EventTime{}, fmt.Errorf("neither dateTime nor date set")
}
