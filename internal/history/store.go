// Package history persists the dashboard state between runs: the live
// dataset plus a bounded ring of snapshots taken before each replacement.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"demcli/pkg/contracts/domain"
)

// MaxSnapshots bounds the history: when a new snapshot arrives at capacity,
// the oldest one is evicted.
const MaxSnapshots = 20

const (
	liveFile    = "live.json"
	historyFile = "history.json"
)

// ErrSnapshotNotFound is returned when a timestamp matches no stored snapshot.
var ErrSnapshotNotFound = fmt.Errorf("snapshot not found")

// Store reads and writes the JSON state files under a single data directory.
// All methods are safe for concurrent use.
type Store struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates the data directory if needed and returns a store bound
// to it.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "history_store")),
	}, nil
}

// SaveLive writes the live dataset. The write is atomic: a crash mid-write
// leaves the previous file intact.
func (s *Store) SaveLive(state domain.LiveState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(liveFile, state)
}

// LoadLive reads the persisted live dataset. The second return is false when
// no live file exists yet.
func (s *Store) LoadLive() (domain.LiveState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state domain.LiveState
	ok, err := s.readJSON(liveFile, &state)
	return state, ok, err
}

// SaveSnapshot prepends a snapshot to the history, evicting the oldest
// entries beyond MaxSnapshots. Newest first on disk, so listing needs no
// re-sort.
func (s *Store) SaveSnapshot(snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.loadSnapshots()
	if err != nil {
		return err
	}

	snapshots = append([]domain.Snapshot{snap}, snapshots...)
	if len(snapshots) > MaxSnapshots {
		evicted := len(snapshots) - MaxSnapshots
		snapshots = snapshots[:MaxSnapshots]
		s.logger.Info("evicted oldest snapshots",
			slog.Int("evicted", evicted),
			slog.Int("kept", len(snapshots)))
	}

	if err := s.writeJSON(historyFile, snapshots); err != nil {
		return err
	}
	s.logger.Info("snapshot saved",
		slog.Time("timestamp", snap.Timestamp),
		slog.String("source", snap.SourceName),
		slog.Int("records", len(snap.Records)))
	return nil
}

// List returns snapshot metadata, newest first, without the record payloads.
func (s *Store) List() ([]domain.SnapshotMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.loadSnapshots()
	if err != nil {
		return nil, err
	}

	metas := make([]domain.SnapshotMeta, len(snapshots))
	for i, snap := range snapshots {
		metas[i] = domain.SnapshotMeta{
			Timestamp:   snap.Timestamp,
			SourceName:  snap.SourceName,
			RecordCount: len(snap.Records),
		}
	}
	return metas, nil
}

// LoadSnapshot returns the snapshot taken at the given instant.
func (s *Store) LoadSnapshot(ts time.Time) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.loadSnapshots()
	if err != nil {
		return domain.Snapshot{}, err
	}
	for _, snap := range snapshots {
		if snap.Timestamp.Equal(ts) {
			return snap, nil
		}
	}
	return domain.Snapshot{}, ErrSnapshotNotFound
}

// Clear removes both state files. Missing files are not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{liveFile, historyFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	s.logger.Info("persisted state cleared", slog.String("dir", s.dir))
	return nil
}

func (s *Store) loadSnapshots() ([]domain.Snapshot, error) {
	var snapshots []domain.Snapshot
	if _, err := s.readJSON(historyFile, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) (bool, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}
