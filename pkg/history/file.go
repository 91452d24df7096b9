package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cross-swap/pkg/types"
)

const DefaultFileName = ".cross-swap-history.json"

// FileStore keeps every record in one JSON file. The file is read again on
// each call so a resume in a new process sees what earlier runs wrote.
type FileStore struct {
	filePath string
	mu       sync.Mutex
}

type fileContents struct {
	Records map[string]types.TransactionRecord `json:"records"`
}

// NewFileStore opens the history file, created on first save
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	s := &FileStore{filePath: filePath}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Save(_ context.Context, rec *types.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[rec.ID] = *rec
	return s.flush(records)
}

func (s *FileStore) Get(_ context.Context, id string) (*types.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (s *FileStore) ListByWallet(_ context.Context, wallet string, limit int) ([]*types.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	return byWallet(records, wallet, limit), nil
}

// Path returns the history file location
func (s *FileStore) Path() string {
	return s.filePath
}

// load must be called with mu held
func (s *FileStore) load() (map[string]types.TransactionRecord, error) {
	records := make(map[string]types.TransactionRecord)
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history file: %w", err)
	}
	for id, rec := range contents.Records {
		records[id] = rec
	}
	return records, nil
}

// flush must be called with mu held
func (s *FileStore) flush(records map[string]types.TransactionRecord) error {
	data, err := json.MarshalIndent(fileContents{Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
