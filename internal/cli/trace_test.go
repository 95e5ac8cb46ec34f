package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_ListsSessions(t *testing.T) {
	dbPath, _ := writeJournal(t)

	out, err := execute(t, "trace", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "run")
}

func TestTrace_SessionRecords(t *testing.T) {
	dbPath, _ := writeJournal(t)

	out, err := execute(t, "trace", dbPath, "--session", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "delta")
	assert.Contains(t, out, "added")
	assert.Contains(t, out, `{"coins":100,"owner":"ada"}`)
	assert.Contains(t, out, "signal")
	assert.Contains(t, out, "caught_up")
	assert.Contains(t, out, "2 records")
}

func TestTrace_JSONReport(t *testing.T) {
	dbPath, _ := writeJournal(t)

	out, err := execute(t, "--format", "json", "trace", dbPath, "--session", "run")
	require.NoError(t, err)
	assert.Contains(t, out, `"session":"run"`)
	assert.Contains(t, out, `"type":"delta"`)
	assert.Contains(t, out, `"type":"signal"`)
}

func TestTrace_UnknownSessionIsEmpty(t *testing.T) {
	dbPath, _ := writeJournal(t)

	out, err := execute(t, "trace", dbPath, "--session", "ghost")
	require.NoError(t, err)
	assert.Contains(t, out, "0 records")
}

func TestTrace_MissingJournal(t *testing.T) {
	_, err := execute(t, "trace", filepath.Join(t.TempDir(), "ghost.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
