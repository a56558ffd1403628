// Package incident persists finished incidents as JSON files.
package incident

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/steveyegge/oaiguard/internal/types"
)

const (
	filePrefix = "incident_"
	fileSuffix = ".json"
)

// Store writes incidents into one directory.
type Store struct {
	dir string
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create incident directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the incident directory.
func (s *Store) Dir() string { return s.dir }

// PathFor returns where inc will be written.
func (s *Store) PathFor(inc *types.Incident) string {
	return filepath.Join(s.dir, filePrefix+inc.Timestamp+fileSuffix)
}

// Save writes inc atomically: readers see either the old file or the
// complete new one. Incidents from the same second overwrite each other.
func (s *Store) Save(inc *types.Incident) (string, error) {
	if inc.Timestamp == "" {
		return "", fmt.Errorf("incident has no timestamp")
	}
	data, err := json.MarshalIndent(inc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal incident: %w", err)
	}

	path := s.PathFor(inc)
	tmp, err := os.CreateTemp(s.dir, ".incident-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write incident: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync incident: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close incident: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return "", fmt.Errorf("failed to chmod incident: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to publish incident: %w", err)
	}
	return path, nil
}

// Load reads one incident file.
func (s *Store) Load(path string) (*types.Incident, error) {
	if !filepath.IsAbs(path) && !strings.ContainsRune(path, filepath.Separator) {
		path = filepath.Join(s.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read incident: %w", err)
	}
	var inc types.Incident
	if err := json.Unmarshal(data, &inc); err != nil {
		return nil, fmt.Errorf("failed to parse incident %s: %w", path, err)
	}
	return &inc, nil
}

// Entry is one listed incident file.
type Entry struct {
	Path     string
	Incident *types.Incident
}

// List returns stored incidents newest first. Unreadable files are skipped.
func (s *Store) List(limit int) ([]Entry, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	// The timestamp layout sorts lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	var out []Entry
	for _, m := range matches {
		inc, err := s.Load(m)
		if err != nil {
			continue
		}
		out = append(out, Entry{Path: m, Incident: inc})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
