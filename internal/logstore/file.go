package logstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// pathLocks serializes writers per file across every FileLog in the process.
var pathLocks sync.Map // abs path → *sync.Mutex

func lockFor(path string) *sync.Mutex {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	mu, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// FileLog stores entries as a JSON array in a single file. Each append is a
// locked read-append-truncate-write, and the write goes through a temp file
// and rename so readers never see a partial file.
type FileLog[T any] struct {
	path     string
	capacity int
	mu       *sync.Mutex
}

// NewFileLog returns a file-backed log. The file is created on first append.
func NewFileLog[T any](path string, capacity int) *FileLog[T] {
	return &FileLog[T]{path: path, capacity: capacity, mu: lockFor(path)}
}

func (f *FileLog[T]) Capacity() int { return f.capacity }

// Path returns the backing file path.
func (f *FileLog[T]) Path() string { return f.path }

func (f *FileLog[T]) Append(_ context.Context, entry T) error {
	if f.capacity <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.load()
	entries = append(entries, entry)
	entries = tail(entries, f.capacity)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(f.path), err)
	}
	return writeAtomic(f.path, data)
}

func (f *FileLog[T]) Recent(_ context.Context, n int) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tail(f.load(), n), nil
}

// load reads the current entries. A missing file is empty; an unreadable or
// corrupt file is treated as empty and overwritten by the next append.
func (f *FileLog[T]) load() []T {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", f.path).Msg("Failed to read log file, starting fresh")
		}
		return nil
	}
	var entries []T
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Str("path", f.path).Msg("Corrupt log file, starting fresh")
		return nil
	}
	return entries
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
