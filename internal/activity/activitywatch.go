package activity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"actcal/internal/errs"
	appLog "actcal/internal/log"
	"actcal/internal/model"
)

const (
	DefaultURL = "http://localhost:5600"

	windowWatcherPrefix = "aw-watcher-window_"
)

// Source reads activity samples for a window.
type Source interface {
	Events(ctx context.Context, w model.TimeWindow) ([]model.ActivityEvent, error)
}

// Client queries an ActivityWatch server.
type Client struct {
	client  *http.Client
	baseURL string

	mu     sync.Mutex
	bucket string
}

// NewClient creates an ActivityWatch client. When bucket is empty the first
// window-watcher bucket reported by the server is used.
func NewClient(baseURL, bucket string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
	}
}

type awEvent struct {
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration"`
	Data      struct {
		App   *string `json:"app"`
		Title *string `json:"title"`
	} `json:"data"`
}

type awBucket struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Hostname string `json:"hostname"`
}

// Events implements Source.
func (c *Client) Events(ctx context.Context, w model.TimeWindow) ([]model.ActivityEvent, error) {
	bucket, err := c.resolveBucket(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("start", w.Start.UTC().Format(time.RFC3339))
	q.Set("end", w.End.UTC().Format(time.RFC3339))
	endpoint := c.baseURL + "/api/0/buckets/" + url.PathEscape(bucket) + "/events?" + q.Encode()

	data, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw []awEvent
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errs.Malformed(errs.SourceActivity, err)
	}

	out := make([]model.ActivityEvent, 0, len(raw))
	for _, ev := range raw {
		var app, title string
		if ev.Data.App != nil {
			app = *ev.Data.App
		}
		if ev.Data.Title != nil {
			title = *ev.Data.Title
		}
		out = append(out, model.ActivityEvent{Duration: ev.Duration, App: app, Title: title})
	}

	appLog.Debug("activity events fetched", "bucket", bucket, "count", len(out),
		"start", w.Start.Format(time.RFC3339), "end", w.End.Format(time.RFC3339))
	return out, nil
}

// resolveBucket returns the configured bucket or discovers a window
// watcher bucket, preferring the lexicographically first for stability.
func (c *Client) resolveBucket(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bucket != "" {
		return c.bucket, nil
	}

	data, err := c.get(ctx, c.baseURL+"/api/0/buckets/")
	if err != nil {
		return "", err
	}
	var buckets map[string]awBucket
	if err := sonic.Unmarshal(data, &buckets); err != nil {
		return "", errs.Malformed(errs.SourceActivity, err)
	}

	ids := make([]string, 0, len(buckets))
	for id, b := range buckets {
		if strings.HasPrefix(id, windowWatcherPrefix) || b.Type == "currentwindow" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", errs.Unavailable(errs.SourceActivity, 0, fmt.Errorf("no window watcher bucket found"))
	}
	sort.Strings(ids)
	c.bucket = ids[0]
	appLog.Info("activity bucket discovered", "bucket", c.bucket)
	return c.bucket, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create activity request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errs.Unavailable(errs.SourceActivity, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.Unavailable(errs.SourceActivity, resp.StatusCode, fmt.Errorf("failed to fetch activity: %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Unavailable(errs.SourceActivity, resp.StatusCode, err)
	}
	return data, nil
}
