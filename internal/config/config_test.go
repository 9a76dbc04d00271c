package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", cfg.Schedule)
	assert.Equal(t, BackendGoogle, cfg.Calendar.Backend)
	assert.Equal(t, "mistral", cfg.Summarizer.Model)
	assert.Equal(t, 600, cfg.Summarizer.MaxChars)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: Europe/Berlin
calendar:
  backend: ICS
  ics_path: /tmp/act.ics
subscriptions:
  - url: https://example.com/a.ics
browsers: [firefox.exe]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendICS, cfg.Calendar.Backend)
	assert.Equal(t, "/tmp/act.ics", cfg.Calendar.ICSPath)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "http://localhost:5600", cfg.ActivityWatch.URL)
	require.Len(t, cfg.Subscriptions, 1)
	assert.Equal(t, "sub-1", cfg.Subscriptions[0].ID)
	assert.Equal(t, []string{"firefox.exe"}, cfg.Browsers)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Kolkata"
	cfg.BasicAuth = &BasicAuthConfig{Username: "me", Password: "pw"}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name    string
		tz      string
		wantErr bool
	}{
		{name: "empty is local", tz: ""},
		{name: "iana", tz: "America/New_York"},
		{name: "unknown", tz: "Mars/Olympus", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Config{Timezone: tt.tz}).Location()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSaveValidatesArguments(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
	_, err := Load("")
	assert.Error(t, err)
}
