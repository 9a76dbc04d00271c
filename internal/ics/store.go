package ics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "actcal/internal/log"
	"actcal/internal/model"
)

const productID = "-//actcal//activity log//EN"

// FileStore keeps derived events in a single local .ics file. It is both a
// sink and a source, and needs no credential.
type FileStore struct {
	path string
	loc  *time.Location

	mu sync.Mutex
}

func NewFileStore(path string, loc *time.Location) *FileStore {
	if loc == nil {
		loc = time.Local
	}
	return &FileStore{path: path, loc: loc}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// CreateEvent appends ev as a new VEVENT and rewrites the file atomically.
func (s *FileStore) CreateEvent(ctx context.Context, _ string, ev model.DerivedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cal, err := s.load()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	vev := cal.AddEvent(uuid.NewString() + "@actcal")
	vev.SetDtStampTime(now)
	vev.SetCreatedTime(now)
	vev.SetStartAt(ev.Window.Start.UTC())
	vev.SetEndAt(ev.Window.End.UTC())
	vev.SetSummary(ev.Summary)
	vev.SetDescription(ev.Description)

	if err := writeAtomic(s.path, []byte(cal.Serialize())); err != nil {
		return fmt.Errorf("write ics file: %w", err)
	}
	appLog.Debug("ics event stored", "path", s.path, "summary", ev.Summary)
	return nil
}

// ListEvents reads the file back and returns events overlapping w. A file
// that does not exist yet holds no events.
func (s *FileStore) ListEvents(ctx context.Context, _ string, w model.TimeWindow) ([]model.CalendarEventRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	body, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.CalendarEventRef{}, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []model.CalendarEventRef{}, nil
	}

	parsed, err := ParseICS(Source{ID: "local", URL: "file://" + s.path}, body)
	if err != nil {
		return nil, fmt.Errorf("read ics file: %w", err)
	}
	return ExpandOccurrences(parsed, ExpandConfig{Location: s.loc, RangeStart: w.Start, RangeEnd: w.End})
}

func (s *FileStore) load() (*ical.Calendar, error) {
	body, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		cal := ical.NewCalendar()
		cal.SetProductId(productID)
		cal.SetMethod(ical.MethodPublish)
		return cal, nil
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ics file %s: %w", s.path, err)
	}
	return cal, nil
}

// writeAtomic writes data to a temp file next to path and renames it over
// path with 0600 permissions.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".actcal-ics-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
