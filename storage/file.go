package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File is a PacketStorage that persists each body as its own file under a
// per-client directory, so a session's unacknowledged QoS packets survive a
// process restart. Grounded on the same save/delete/load-by-id shape as the
// teacher's subscription/session persistence, adapted here to the
// PacketStorage contract (raw bytes addressed by packet id, not JSON
// session records).
type File struct {
	dir         string
	permissions os.FileMode

	mu    sync.Mutex
	cache map[uint16][]byte
}

// FileOption configures a File store.
type FileOption func(*File)

// WithFilePermissions sets the permissions used for stored packet files.
// Default 0600: packet bodies may contain credentials or other sensitive
// payloads.
func WithFilePermissions(perm os.FileMode) FileOption {
	return func(f *File) { f.permissions = perm }
}

// NewFile creates a file-based packet store for clientID under baseDir.
// Any bodies already on disk from a previous run are loaded into memory
// immediately, since Load must not block on disk I/O under the engine's
// mutex.
func NewFile(baseDir, clientID string, opts ...FileOption) (*File, error) {
	if clientID == "" {
		return nil, fmt.Errorf("storage: clientID cannot be empty")
	}
	if strings.Contains(clientID, "..") || strings.ContainsRune(clientID, filepath.Separator) {
		return nil, fmt.Errorf("storage: clientID contains invalid characters")
	}

	f := &File{
		dir:         filepath.Join(baseDir, clientID),
		permissions: 0600,
		cache:       make(map[uint16][]byte),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := os.MkdirAll(f.dir, f.permissions|0100); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: read directory: %w", err)
	}
	for _, e := range entries {
		var id uint16
		if _, err := fmt.Sscanf(e.Name(), "pkt_%d.bin", &id); err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, e.Name()))
		if err != nil {
			continue
		}
		f.cache[id] = data
	}

	return f, nil
}

func (f *File) path(id uint16) string {
	return filepath.Join(f.dir, fmt.Sprintf("pkt_%d.bin", id))
}

func (f *File) Save(id uint16, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := append([]byte(nil), body...)
	if err := os.WriteFile(f.path(id), stored, f.permissions); err != nil {
		return fmt.Errorf("storage: write packet %d: %w", id, err)
	}
	f.cache[id] = stored
	return nil
}

func (f *File) Release(id uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.cache, id)
	if err := os.Remove(f.path(id)); err != nil && !os.IsNotExist(err) {
		// Best effort: the in-memory cache is already authoritative for
		// Load. A leftover file is loaded again as a stored packet by the
		// next NewFile over this directory.
		_ = err
	}
}

func (f *File) Load(id uint16) (head, tail []byte, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.cache[id]
	if !ok {
		return nil, nil, false
	}
	return body, nil, true
}
