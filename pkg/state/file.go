package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"cross-swap/pkg/types"
)

const DefaultFileName = ".cross-swap-state.json"

// FileStore keeps every snapshot in one JSON file, rewritten atomically
type FileStore struct {
	filePath string
	resolve  types.ChainResolver

	mu        sync.Mutex
	snapshots map[string]json.RawMessage
}

type fileContents struct {
	Snapshots map[string]json.RawMessage `json:"snapshots"`
}

// NewFileStore opens or creates the state file
func NewFileStore(filePath string, resolve types.ChainResolver) (*FileStore, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	s := &FileStore{
		filePath:  filePath,
		resolve:   resolve,
		snapshots: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		// created on first save
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	if contents.Snapshots != nil {
		s.snapshots = contents.Snapshots
	}
	return s, nil
}

func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.SessionID] = data
	return s.flush()
}

func (s *FileStore) Load(_ context.Context, sessionID string) (*Snapshot, error) {
	s.mu.Lock()
	data, ok := s.snapshots[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return Decode(data, s.resolve)
}

func (s *FileStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[sessionID]; !ok {
		return nil
	}
	delete(s.snapshots, sessionID)
	return s.flush()
}

func (s *FileStore) List(_ context.Context) ([]*Snapshot, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	raw := make([]json.RawMessage, len(ids))
	for i, id := range ids {
		raw[i] = s.snapshots[id]
	}
	s.mu.Unlock()

	out := make([]*Snapshot, 0, len(raw))
	for _, data := range raw {
		snap, err := Decode(data, s.resolve)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Path returns the state file location
func (s *FileStore) Path() string {
	return s.filePath
}

// flush must be called with mu held
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(fileContents{Snapshots: s.snapshots}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// write to a temp file, then rename for an atomic replace
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
