// Package jsonfile persists the conversation document as a single
// pretty-printed JSON file, the format the store has always used.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/smartchat/smartchat-go/pkg/storage"
)

// Client implements storage.Backend on top of one JSON file.
type Client struct {
	path string
}

// Config contains configuration for the JSON file backend.
type Config struct {
	// Path is the document location. The parent directory is created on save.
	Path string
}

// NewClient creates a JSON file backend. The file is not touched until the
// first Load or Save.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("jsonfile: path is required")
	}
	return &Client{path: cfg.Path}, nil
}

// Path returns the document location.
func (c *Client) Path() string {
	return c.path
}

// Load reads the document. A missing file yields an empty document.
func (c *Client) Load(_ context.Context) (*storage.Document, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read %s: %w", c.path, err)
	}

	doc := storage.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("jsonfile: decode %s: %w", c.path, err)
	}
	if doc.Conversations == nil {
		doc.Conversations = make(map[string]*storage.UserProfile)
	}
	return doc, nil
}

// Save rewrites the whole document. It writes a temporary file next to the
// target and renames it into place.
func (c *Client) Save(_ context.Context, doc *storage.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("jsonfile: encode: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("jsonfile: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	// CreateTemp uses 0600; keep the document's mode, 0644 for a new file.
	mode := fs.FileMode(0644)
	if info, err := os.Stat(c.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile: chmod: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: close: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("jsonfile: rename: %w", err)
	}
	return nil
}

// Close is a no-op; the file is opened per operation.
func (c *Client) Close() error {
	return nil
}
