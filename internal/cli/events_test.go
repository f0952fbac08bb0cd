package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "session.yaml", demoManifest)

	stdout, _, err := execute(t, "events", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "event:/Ambience/Country")
	assert.Contains(t, stdout, "event:/Weapons/Pistol")
	assert.Contains(t, stdout, "PATH")
}

func TestEventsJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "session.yaml", demoManifest)

	stdout, _, err := execute(t, "--format", "json", "events", path)
	require.NoError(t, err)

	var result EventsResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Session)
	assert.Equal(t, []string{"Master.bank", "Master.strings.bank", "SFX.bank"}, result.Banks)
	require.Len(t, result.Events, 6)
	assert.Equal(t, EventEntry{Index: 4, Path: "event:/Weapons/Explosion"}, result.Events[4])
}

func TestEventsCustomCatalog(t *testing.T) {
	path := writeFile(t, t.TempDir(), "session.yaml", `banks: [Master.bank]
catalog:
  Master.bank:
    events:
      - path: event:/Only/One
`)

	stdout, _, err := execute(t, "--format", "json", "events", path)
	require.NoError(t, err)

	var result EventsResult
	decodeResponse(t, stdout, &result)
	assert.Equal(t, []EventEntry{{Index: 0, Path: "event:/Only/One"}}, result.Events)
}

func TestEventsCountMismatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "session.yaml", `banks: [Master.bank]
catalog:
  Master.bank:
    reported_count: 2
    events:
      - path: event:/Only/One
`)

	stdout, _, err := execute(t, "--format", "json", "events", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSession, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "EVENT_COUNT_MISMATCH", details["audio_code"])
}

func TestEventsCountMismatchReleasesSession(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "session.yaml", `banks: [Master.bank]
catalog:
  Master.bank:
    reported_count: 2
    events:
      - path: event:/Only/One
`)
	db := filepath.Join(dir, "earshot.db")

	stdout, _, err := execute(t, "--format", "json", "events", path, "--journal", db)
	require.Error(t, err)

	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	token, _ := details["session"].(string)
	require.NotEmpty(t, token)
	assertReleased(t, db, token)
}

func TestEventsMissingMasterBank(t *testing.T) {
	path := writeFile(t, t.TempDir(), "session.yaml", "banks: [SFX.bank]\n")

	stdout, _, err := execute(t, "--format", "json", "events", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBringUp, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "MISSING_MASTER_BANK", details["audio_code"])
}

func TestEventsManifestNotFound(t *testing.T) {
	stdout, _, err := execute(t, "events", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeManifest+"]")
}
