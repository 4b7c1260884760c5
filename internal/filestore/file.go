// Package filestore serves the video list from a single JSON file.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/jwulff/tubemarker/internal/logger"
)

var (
	// ErrNotArray is returned when a replacement body is not a JSON array.
	ErrNotArray = errors.New("body must be a JSON array of videos")
	// ErrCorrupt is returned when the data file does not hold valid JSON.
	ErrCorrupt = errors.New("data file is not valid JSON")
)

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// File is a JSON array persisted at a path. Reads and writes are serialized.
type File struct {
	path string
	mu   sync.RWMutex
}

// NewFile returns a File for path. The file is created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the data file.
func (f *File) Path() string {
	return f.path
}

// Read returns the stored JSON array.
func (f *File) Read() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("read %s: %w", f.path, ErrCorrupt)
	}
	return data, nil
}

// Replace overwrites the file with body, which must be a JSON array.
func (f *File) Replace(body []byte) error {
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsArray() {
		return ErrNotArray
	}

	data := pretty.PrettyOptions(body, prettyOptions)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".videos-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}

	logger.Infof("[PUT] saved %d videos (%s) to %s",
		len(gjson.ParseBytes(body).Array()), humanize.Bytes(uint64(len(data))), f.path)
	return nil
}
