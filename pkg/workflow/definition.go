package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gardenfork/espalier/pkg/domain"
)

// Definition is a declarative step graph: named steps with guarded edges.
// Definitions are human-edited YAML, one file per workflow name.
type Definition struct {
	Name          string          `yaml:"name" json:"name"`
	Version       string          `yaml:"version" json:"version"`
	Description   string          `yaml:"description,omitempty" json:"description,omitempty"`
	InitialStep   string          `yaml:"initial_step" json:"initial_step"`
	TerminalSteps []string        `yaml:"terminal_steps" json:"terminal_steps"`
	Steps         map[string]Step `yaml:"steps" json:"steps"`
}

// Step is one node of the graph.
type Step struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Outputs     map[string]any `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Next        []Edge         `yaml:"next,omitempty" json:"next,omitempty"`
}

// Edge is a guarded transition. An empty Condition marks the default edge,
// taken only when no conditional edge matched.
type Edge struct {
	Target    string `yaml:"target" json:"target"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
	Label     string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Terminal reports whether the step id is declared terminal.
func (d *Definition) Terminal(stepID string) bool {
	for _, id := range d.TerminalSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// ParseDefinition decodes and validates a definition document. Invalid
// graphs are rejected here, before any instance can be created from them;
// traversal never sees a malformed definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode workflow definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinition reads and validates a definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow definition: %w", err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// DefinitionStore resolves workflow names to validated definitions from a
// directory of YAML files (<name>.yaml).
type DefinitionStore struct {
	Dir string
}

// NewDefinitionStore creates a store rooted at dir.
func NewDefinitionStore(dir string) *DefinitionStore {
	return &DefinitionStore{Dir: dir}
}

// Get loads the definition for a workflow name.
// Returns domain.ErrWorkflowNotFound when no file exists for the name.
func (s *DefinitionStore) Get(name string) (*Definition, error) {
	path := filepath.Join(s.Dir, name+".yaml")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workflow %q: %w", name, domain.ErrWorkflowNotFound)
		}
		return nil, fmt.Errorf("failed to stat workflow definition: %w", err)
	}
	return LoadDefinition(path)
}

// List returns the workflow names available in the store.
func (s *DefinitionStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list workflow definitions: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		names = append(names, entry.Name()[:len(entry.Name())-len(".yaml")])
	}
	return names, nil
}
