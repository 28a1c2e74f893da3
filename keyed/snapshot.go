package keyed

import (
	"context"
	"time"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Entry is a single key/value pair.
type Entry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// CategorySnapshot captures one category in insertion order.
type CategorySnapshot struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Snapshot is a point-in-time copy of a MemoryStore, tagged with the
// principal whose session produced it.
type Snapshot struct {
	Version    int                `json:"version"`
	Owner      string             `json:"owner"`
	SavedAt    time.Time          `json:"saved_at"`
	Categories []CategorySnapshot `json:"categories"`
}

// Len returns the total number of entries in the snapshot.
func (s Snapshot) Len() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.Entries)
	}
	return n
}

// Persister stores snapshots outside the process.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: methods must honor cancellation/deadlines.
//   - Errors: Load returns (Snapshot{}, false, nil) when nothing was saved.
type Persister interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, bool, error)
	Clear(ctx context.Context) error
}

// Snapshot captures the store contents for owner.
func (s *MemoryStore) Snapshot(owner string) Snapshot {
	snap := Snapshot{
		Version: SnapshotVersion,
		Owner:   owner,
		SavedAt: time.Now().UTC(),
	}
	for _, name := range s.Categories() {
		entries := s.entries(name)
		if len(entries) == 0 {
			continue
		}
		snap.Categories = append(snap.Categories, CategorySnapshot{Name: name, Entries: entries})
	}
	return snap
}

// Restore replaces the store contents with snap.
func (s *MemoryStore) Restore(snap Snapshot) error {
	if err := checkVersion(snap); err != nil {
		return err
	}

	s.Clear()
	for _, c := range snap.Categories {
		for _, e := range c.Entries {
			s.Insert(c.Name, e.Key, e.Value)
		}
	}
	return nil
}

func checkVersion(snap Snapshot) error {
	if snap.Version != 0 && snap.Version != SnapshotVersion {
		return ErrUnsupportedSnapshot
	}
	return nil
}
