package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilePersister keeps the seen set in a human-readable JSON array. Writes go
// to a temp file in the same directory and are renamed over the target.
type FilePersister struct {
	path string
}

var _ Persister = (*FilePersister)(nil)

func NewFilePersister(path string) (*FilePersister, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("state: file path is required")
	}
	return &FilePersister{path: path}, nil
}

func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) Load(ctx context.Context) ([]string, bool, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("state: failed to read %s: %w", p.path, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, true, nil
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, true, fmt.Errorf("state: %s is not a JSON list of URLs: %w", p.path, err)
	}

	return urls, true, nil
}

func (p *FilePersister) Save(ctx context.Context, urls []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if urls == nil {
		urls = []string{}
	}

	data, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return fmt.Errorf("state: failed to encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("state: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("state: failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("state: failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("state: failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("state: failed to replace %s: %w", p.path, err)
	}

	return nil
}
