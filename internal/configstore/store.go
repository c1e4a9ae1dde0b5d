// Package configstore persists the agent's JSON configuration document with
// atomic replace semantics.
package configstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"agentpanel/internal/logger"
)

// DefaultFileMode keeps the document readable by the owning service account only.
const DefaultFileMode os.FileMode = 0600

// Write stages, reported in WriteError.
const (
	StageMkdir      = "mkdir"
	StageCreateTemp = "create-temp"
	StageEncode     = "encode"
	StageWrite      = "write"
	StageRename     = "rename"
)

var stageMessages = map[string]string{
	StageMkdir:      "Failed to create config directory",
	StageCreateTemp: "Failed to create temp file",
	StageEncode:     "Failed to encode JSON",
	StageWrite:      "Failed to write config",
	StageRename:     "Failed to move config into place",
}

// WriteError reports which step of an atomic write failed. The document at the
// final path is unchanged whenever a WriteError is returned.
type WriteError struct {
	Stage string
	Path  string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Message(), e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Message returns the operator-facing description of the failed stage.
func (e *WriteError) Message() string {
	if m, ok := stageMessages[e.Stage]; ok {
		return m
	}
	return "Failed to save config"
}

// Store reads and atomically rewrites a single JSON document.
type Store struct {
	path string
	mode os.FileMode
	fs   fileSystem
}

// New creates a Store for the document at path.
func New(path string) *Store {
	return &Store{path: path, mode: DefaultFileMode, fs: osFS{}}
}

// Path returns the location of the document.
func (s *Store) Path() string { return s.path }

// Read returns the stored document. A missing, unreadable or malformed file
// yields an empty document; Read never fails.
func (s *Store) Read() Document {
	log := logger.WithComponent("configstore")

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", s.path).Msg("Config unreadable, treating as empty")
		}
		return Document{}
	}

	doc, err := decode(data)
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Config is not a JSON object, treating as empty")
		return Document{}
	}
	return doc
}

// Write reads the current document, passes a copy to mutate and atomically
// replaces the file with the result. Two concurrent Writes are last-writer-wins.
func (s *Store) Write(mutate func(Document) Document) error {
	next := mutate(s.Read().Clone())
	if next == nil {
		next = Document{}
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return &WriteError{Stage: StageMkdir, Path: s.path, Err: err}
	}

	tmp, err := s.fs.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &WriteError{Stage: StageCreateTemp, Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			s.fs.Remove(tmpPath)
		}
	}()

	data, err := encode(next)
	if err != nil {
		return &WriteError{Stage: StageEncode, Path: s.path, Err: err}
	}

	if err := writeAndClose(tmp, data, s.mode); err != nil {
		return &WriteError{Stage: StageWrite, Path: s.path, Err: err}
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		return &WriteError{Stage: StageRename, Path: s.path, Err: err}
	}

	committed = true
	log := logger.WithComponent("configstore")
	log.Info().
		Str("path", s.path).
		Int("keys", len(next)).
		Msg("Config written")
	return nil
}

func writeAndClose(f tempFile, data []byte, mode os.FileMode) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Chmod(mode); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return f.Close()
}

// encode renders doc as indented JSON with a trailing newline. Slashes and HTML
// characters are left unescaped so URLs stay readable.
func encode(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON object at offset %d", dec.InputOffset())
	}
	if doc == nil {
		return Document{}, nil
	}
	return doc, nil
}
