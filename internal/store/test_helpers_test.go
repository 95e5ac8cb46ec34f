package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/specular/internal/state"
	"github.com/roach88/specular/internal/testutil"
)

var keys testutil.NamedKeyGenerator

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDelta creates a delta with a stamped key and a small payload.
func createTestDelta(container string, id state.Identity, keyName string, kind state.DeltaKind, seq int64) state.Delta {
	var payload state.Object
	if kind != state.DeltaRemoved {
		payload = state.Object{
			"id":    state.String(id.String()),
			"value": state.Int(seq * 10),
		}
	}
	return state.Delta{
		Container: container,
		Identity:  id,
		Stamp:     state.Stamp{Key: keys.KeyFor(keyName)},
		Kind:      kind,
		Payload:   payload,
		Seq:       seq,
	}
}
