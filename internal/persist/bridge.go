// Package persist snapshots the restartable subset of the store to a
// named, versioned JSON file and rehydrates it at startup. Open-chat
// state and the transient upload/long-text maps never reach disk.
package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/meowtec/LANSend/internal/store"
)

const (
	snapshotName    = "chat-storage"
	snapshotVersion = 0
)

type snapshot struct {
	Name    string         `json:"name"`
	Version int            `json:"version"`
	State   store.AppState `json:"state"`
}

// Bridge reads and writes one snapshot file.
type Bridge struct {
	path string
	mu   sync.Mutex
}

// NewBridge uses the given file path for the snapshot.
func NewBridge(path string) *Bridge {
	return &Bridge{path: path}
}

// DefaultPath places the snapshot under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "lansend", snapshotName+".json"), nil
}

// Load rehydrates the snapshot. A missing, unreadable or
// version-mismatched file yields a fresh initial state.
func (b *Bridge) Load() store.AppState {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return store.Initial()
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("discarding unreadable snapshot", "path", b.path, "error", err)
		return store.Initial()
	}
	if snap.Name != snapshotName || snap.Version != snapshotVersion {
		slog.Warn("discarding snapshot with wrong name/version",
			"name", snap.Name, "version", snap.Version)
		return store.Initial()
	}
	return snap.State
}

// Save writes the snapshot atomically (temp file + rename).
func (b *Bridge) Save(state store.AppState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.Marshal(snapshot{
		Name:    snapshotName,
		Version: snapshotVersion,
		State:   state,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, b.path)
}

// Attach shadows every store write to disk. Failures are logged and
// otherwise ignored; persistence must never block the chat.
func (b *Bridge) Attach(st *store.Store) {
	st.Subscribe(func(state store.AppState) {
		if err := b.Save(state); err != nil {
			slog.Warn("snapshot write failed", "error", err)
		}
	})
}
