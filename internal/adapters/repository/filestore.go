package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/okian/showctl/internal/domain/telemetry"
)

const (
	defaultFileMode = 0o600
	defaultDirMode  = 0o700
)

// record is the on-disk root. Anything without an events list is corrupt.
type record struct {
	Events []telemetry.Event `yaml:"events"`
}

// FileStore keeps pending events in a YAML file.
type FileStore struct {
	path    string
	mode    os.FileMode
	dirMode os.FileMode
	mu      sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	s := &FileStore{
		path:    filepath.Clean(path),
		mode:    defaultFileMode,
		dirMode: defaultDirMode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the record location.
func (s *FileStore) Path() string { return s.path }

// Load reads the record.
func (s *FileStore) Load(ctx context.Context) ([]telemetry.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Save appends events to the record. A corrupt record is replaced.
func (s *FileStore) Save(ctx context.Context, events []telemetry.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil && !errors.Is(err, ErrCorruptStore) {
		return err
	}
	all := make([]telemetry.Event, 0, len(existing)+len(events))
	all = append(all, existing...)
	all = append(all, events...)
	return s.write(record{Events: all})
}

// Clear deletes the record file.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) read() ([]telemetry.Event, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if !hasEventList(&root) {
		return nil, fmt.Errorf("%w: missing events list", ErrCorruptStore)
	}
	var rec record
	if err := root.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return rec.Events, nil
}

// hasEventList checks the root is a mapping whose events key is a sequence.
func hasEventList(doc *yaml.Node) bool {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return false
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == "events" {
			v := m.Content[i+1]
			return v.Kind == yaml.SequenceNode || (v.Kind == yaml.ScalarNode && v.Tag == "!!null")
		}
	}
	return false
}

func (s *FileStore) write(rec record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(s.mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename into %s: %w", s.path, err)
	}
	return nil
}
