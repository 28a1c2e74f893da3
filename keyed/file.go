package keyed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FilePersister writes snapshots to a single file on disk.
type FilePersister struct {
	path  string
	codec Codec
	mu    sync.Mutex
}

// NewFilePersister creates a file persister. A nil codec uses DefaultCodec.
func NewFilePersister(path string, codec Codec) *FilePersister {
	if codec == nil {
		codec = DefaultCodec
	}
	return &FilePersister{path: path, codec: codec}
}

// Path returns the snapshot file path.
func (p *FilePersister) Path() string {
	return p.path
}

// Save writes snap using a temp file and rename so readers never see a
// partially written snapshot.
func (p *FilePersister) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.path == "" {
		return errors.New("keyed: snapshot path is empty")
	}

	data, err := p.codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("keyed: encode snapshot: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, p.path)
}

// Load reads the snapshot file. A missing file is not an error.
func (p *FilePersister) Load(ctx context.Context) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	p.mu.Lock()
	data, err := os.ReadFile(p.path)
	p.mu.Unlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if err := p.codec.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("keyed: decode snapshot: %w", err)
	}
	if err := checkVersion(snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Clear deletes the snapshot file.
func (p *FilePersister) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Ensure FilePersister implements Persister
var _ Persister = (*FilePersister)(nil)
