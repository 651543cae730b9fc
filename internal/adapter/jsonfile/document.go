// Package jsonfile persists session records as a JSON array in a local file.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pscheid92/wagate/internal/domain"
)

// Document is a session document stored in a single file.
// Writes go to a temp file in the same directory and are renamed into place.
type Document struct {
	path string
	mu   sync.Mutex
}

var _ domain.SessionDocument = (*Document)(nil)

func NewDocument(path string) *Document {
	return &Document{path: path}
}

func (d *Document) Path() string {
	return d.path
}

// Load reads all records. A missing file is created as an empty array.
func (d *Document) Load(ctx context.Context) ([]domain.SessionRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := d.write([]domain.SessionRecord{}); err != nil {
			return nil, err
		}
		return []domain.SessionRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var records []domain.SessionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedStore, d.path, err)
	}
	if records == nil {
		records = []domain.SessionRecord{}
	}
	return records, nil
}

func (d *Document) Save(ctx context.Context, records []domain.SessionRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return d.write(records)
}

// Ping verifies the document's directory is reachable.
func (d *Document) Ping(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(d.path))
	if err != nil {
		return fmt.Errorf("session file directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(d.path))
	}
	return nil
}

func (d *Document) write(records []domain.SessionRecord) error {
	if records == nil {
		records = []domain.SessionRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
