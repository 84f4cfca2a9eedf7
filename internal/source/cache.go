package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const resumeFileName = "resume.json"

// ResumeState records where an interrupted run should pick up. It lives as
// JSON next to the cached checkpoint blobs.
type ResumeState struct {
	NextCheckpoint uint64 `json:"next_checkpoint"`
}

// Cache stores raw checkpoint blobs on disk so re-runs over the same range
// skip the network entirely.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed and returns the cache.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) blobPath(seq uint64) string {
	return filepath.Join(c.dir, fmt.Sprintf("%d.chk", seq))
}

// Get returns the cached blob for a checkpoint, or ok=false on a miss.
func (c *Cache) Get(seq uint64) ([]byte, bool) {
	blob, err := os.ReadFile(c.blobPath(seq))
	if err != nil {
		return nil, false
	}
	return blob, true
}

// Put writes a checkpoint blob to the cache.
func (c *Cache) Put(seq uint64, blob []byte) error {
	if err := os.WriteFile(c.blobPath(seq), blob, 0644); err != nil {
		return fmt.Errorf("failed to cache checkpoint %d: %w", seq, err)
	}
	return nil
}

// LoadResume reads the persisted resume state. A missing file is not an
// error; it just means the run starts fresh.
func (c *Cache) LoadResume() (*ResumeState, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, resumeFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read resume state: %w", err)
	}
	var state ResumeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resume state: %w", err)
	}
	return &state, nil
}

// SaveResume persists the resume state.
func (c *Cache) SaveResume(state ResumeState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.dir, resumeFileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write resume state: %w", err)
	}
	return nil
}
