package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timegrid/internal/layout"
)

func TestLoad_CreatesDefaultOnFirstRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen: ":9000"
week_start: friday
start_hour: 30
column_mode: CAPPED
inverted_policy: explode
ics:
  - url: https://example.com/exams.ics
    name: exams
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, 0, cfg.StartHour)
	assert.Equal(t, "capped", cfg.ColumnMode)
	assert.Equal(t, "permissive", cfg.InvertedPolicy)
	assert.Equal(t, layout.SnapTolerance, cfg.SnapTolerance)
	require.Len(t, cfg.ICS, 1)
	assert.Equal(t, "exams", cfg.ICS[0].FeedID())

	opts := cfg.LayoutOptions()
	assert.Equal(t, layout.ColumnsCapped, opts.Columns)
	assert.Equal(t, layout.InvertedPermissive, opts.Inverted)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [oops"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.StartHour = 7
	cfg.ICS = append(cfg.ICS, ICSConfig{URL: "https://example.com/a.ics", ID: "a"})
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}

	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestSave_Errors(t *testing.T) {
	t.Parallel()

	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
	_, err := Load("")
	assert.Error(t, err)
}

func TestFeedID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "id", ICSConfig{ID: "id", Name: "n", URL: "u"}.FeedID())
	assert.Equal(t, "n", ICSConfig{Name: "n", URL: "u"}.FeedID())
	assert.Equal(t, "u", ICSConfig{URL: "u"}.FeedID())
}
