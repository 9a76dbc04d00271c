package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actcal/internal/errs"
	"actcal/internal/model"
)

var testWindow = model.TimeWindow{
	Start: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
}

func TestCreateEvent(t *testing.T) {
	var got eventResource
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/calendars/work@example.com/events", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"new"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "work@example.com")
	err := c.CreateEvent(context.Background(), "tok", model.DerivedEvent{
		Summary: "code 100%", Description: "- coding", Window: testWindow,
	})
	require.NoError(t, err)
	assert.Equal(t, "code 100%", got.Summary)
	assert.Equal(t, "- coding", got.Description)
	assert.Equal(t, "2025-05-01T09:00:00Z", got.Start.DateTime)
	assert.Equal(t, "2025-05-01T10:00:00Z", got.End.DateTime)
}

func TestCreateEventFailureCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").CreateEvent(context.Background(), "tok", model.DerivedEvent{Window: testWindow})
	require.Error(t, err)
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.KindUnavailable, e.Kind)
	assert.Equal(t, errs.SourceCalendar, e.Source)
	assert.Equal(t, http.StatusUnauthorized, e.Status)
}

func TestListEventsPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		assert.Equal(t, "2025-05-01T09:00:00Z", q.Get("timeMin"))

		switch q.Get("pageToken") {
		case "":
			_, _ = w.Write([]byte(`{"items":[
				{"id":"a","summary":"Standup","start":{"dateTime":"2025-05-01T09:00:00+02:00"},"end":{"dateTime":"2025-05-01T09:30:00+02:00"}}
			],"nextPageToken":"p2"}`))
		case "p2":
			_, _ = w.Write([]byte(`{"items":[
				{"id":"b","summary":"Holiday","start":{"date":"2025-05-01"},"end":{"date":"2025-05-02"}}
			]}`))
		}
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "").ListEvents(context.Background(), "tok", testWindow)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.True(t, time.Date(2025, 5, 1, 7, 0, 0, 0, time.UTC).Equal(got[0].Start.DateTime))
	assert.False(t, got[0].AllDay())
	assert.Equal(t, "2025-05-01", got[1].Start.Date)
	assert.True(t, got[1].AllDay())
}

func TestListEventsFailsAtPageLimit(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{"items":[],"nextPageToken":"more"}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "").ListEvents(context.Background(), "tok", testWindow)
	assert.True(t, errors.Is(err, errs.ErrMalformed), "got %v", err)
	assert.Nil(t, got)
	assert.Equal(t, maxPages, requests)
}

func TestListEventsEmptyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "").ListEvents(context.Background(), "tok", testWindow)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListEventsMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json": `<html>`,
		"bad time": `{"items":[{"id":"a","start":{"dateTime":"nope"},"end":{"dateTime":"2025-05-01T10:00:00Z"}}]}`,
		"no time":  `{"items":[{"id":"a","start":{},"end":{}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "").ListEvents(context.Background(), "tok", testWindow)
			assert.True(t, errors.Is(err, errs.ErrMalformed), "got %v", err)
		})
	}
}
