package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gardenfork/espalier/pkg/domain"
)

// FileInstanceStore persists instances as JSON files, one per instance ID.
type FileInstanceStore struct {
	BasePath string
}

// NewFileInstanceStore creates a store rooted at basePath. If basePath is
// empty it defaults to ".espalier/instances".
func NewFileInstanceStore(basePath string) *FileInstanceStore {
	if basePath == "" {
		basePath = filepath.Join(".espalier", "instances")
	}
	return &FileInstanceStore{BasePath: basePath}
}

func (s *FileInstanceStore) path(id string) string {
	return filepath.Join(s.BasePath, id+".json")
}

// Save persists the instance.
func (s *FileInstanceStore) Save(ctx context.Context, inst *Instance) error {
	if inst.ID == "" {
		return fmt.Errorf("instance ID cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure instance directory: %w", err)
	}

	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}

	if err := os.WriteFile(s.path(inst.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write instance file: %w", err)
	}
	return nil
}

// Load retrieves an instance by ID.
func (s *FileInstanceStore) Load(ctx context.Context, id string) (*Instance, error) {
	if id == "" {
		return nil, fmt.Errorf("instance ID cannot be empty")
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("instance %q: %w", id, domain.ErrInstanceNotFound)
		}
		return nil, fmt.Errorf("failed to read instance file: %w", err)
	}

	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance: %w", err)
	}
	// Hand-edited files can null out the state map; advances merge into it.
	if inst.State == nil {
		inst.State = make(map[string]any)
	}
	return &inst, nil
}

// List returns all persisted instance IDs.
func (s *FileInstanceStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := entry.Name()
		ids = append(ids, name[:len(name)-len(".json")])
	}
	return ids, nil
}

// Delete removes the instance file. Removing a missing instance is not an
// error.
func (s *FileInstanceStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("instance ID cannot be empty")
	}
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete instance file: %w", err)
	}
	return nil
}
