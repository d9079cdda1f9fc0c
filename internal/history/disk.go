package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/deixis/shellbridge/internal/executor"
)

// DiskStore writes results as JSON files to a lazily-created directory.
type DiskStore struct {
	mu  sync.Mutex
	dir string
	// configured holds the requested directory; empty means a temp
	// directory is created on first use.
	configured string
}

// NewDiskStore creates a DiskStore rooted at dir. When dir is empty a
// temp directory is created lazily on the first Save.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{configured: dir}
}

// Save writes a result as a JSON file to disk.
func (s *DiskStore) Save(result *executor.Result) error {
	dir, err := s.ensureDir()
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling result %s: %w", result.RequestID, err)
	}
	path := filepath.Join(dir, result.RequestID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result %s: %w", result.RequestID, err)
	}
	return nil
}

// Load reads a result from disk.
func (s *DiskStore) Load(requestID string) (*executor.Result, error) {
	dir, err := s.ensureDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, requestID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result %s: %w", requestID, err)
	}
	var result executor.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshalling result %s: %w", requestID, err)
	}
	return &result, nil
}

func (s *DiskStore) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		return s.dir, nil
	}
	if s.configured != "" {
		if err := os.MkdirAll(s.configured, 0o755); err != nil {
			return "", fmt.Errorf("creating result directory: %w", err)
		}
		s.dir = s.configured
		return s.dir, nil
	}
	dir, err := os.MkdirTemp("", "shellbridge-results-*")
	if err != nil {
		return "", fmt.Errorf("creating result directory: %w", err)
	}
	s.dir = dir
	return dir, nil
}
