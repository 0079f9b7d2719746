package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultFileName is the checkpoint log's file name inside the output directory.
const DefaultFileName = "checkpoint.txt"

// Store is an append-only log of fully processed document names.
// A single Store must be shared by every worker of a run; its mutex
// serializes all appends.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// Open creates a Store backed by the file at path.
// The parent directory is created if needed; the file itself is created on first append.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &Store{
		path:   path,
		logger: logger.With("component", "checkpoint"),
	}, nil
}

// Path returns the location of the checkpoint log.
func (s *Store) Path() string {
	return s.path
}

// Load reads every completed document name from the log.
// A missing log yields an empty set. Blank lines are skipped.
func (s *Store) Load() (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(map[string]struct{})

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return done, nil
		}
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	skipped := 0
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			skipped++
			continue
		}
		done[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	s.logger.Debug("loaded checkpoint", "entries", len(done), "skipped_lines", skipped)
	return done, nil
}

// Append durably records name as completed.
// Concurrent calls never interleave their bytes.
func (s *Store) Append(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open checkpoint for append: %w", err)
	}

	if _, err := f.WriteString(name + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	return f.Close()
}
