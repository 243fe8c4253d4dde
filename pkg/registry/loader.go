package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentConfig overrides one agent's registration.
type AgentConfig struct {
	Key          string   `yaml:"key"`
	Disabled     bool     `yaml:"disabled,omitempty"`
	TriggerTerms []string `yaml:"trigger_terms,omitempty"`
}

// AgentsFile is the on-disk agent overrides document.
type AgentsFile struct {
	Agents []AgentConfig `yaml:"agents"`
}

// Lookup returns the override for key.
func (f *AgentsFile) Lookup(key string) (AgentConfig, bool) {
	if f == nil {
		return AgentConfig{}, false
	}
	for _, a := range f.Agents {
		if a.Key == key {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// Enabled reports whether key should be registered. Unknown keys are enabled.
func (f *AgentsFile) Enabled(key string) bool {
	a, ok := f.Lookup(key)
	return !ok || !a.Disabled
}

// Terms returns the overridden trigger terms for key, or def when none are set.
func (f *AgentsFile) Terms(key string, def []string) []string {
	if a, ok := f.Lookup(key); ok && len(a.TriggerTerms) > 0 {
		return a.TriggerTerms
	}
	return def
}

// Loader reads agent overrides from a YAML file
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load returns an empty document when no path is set or the file does not exist.
func (l *Loader) Load() (*AgentsFile, error) {
	if l.configPath == "" {
		return &AgentsFile{}, nil
	}

	data, err := os.ReadFile(l.configPath)
	if os.IsNotExist(err) {
		return &AgentsFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read agents file %s: %w", l.configPath, err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates an agents document
func LoadFromBytes(data []byte) (*AgentsFile, error) {
	var f AgentsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse agents YAML: %w", err)
	}

	seen := make(map[string]bool, len(f.Agents))
	for _, a := range f.Agents {
		switch {
		case a.Key == "":
			return nil, fmt.Errorf("agent override without key")
		case a.Key == KeyRouter:
			return nil, fmt.Errorf("%w: %s", ErrReservedKey, a.Key)
		case seen[a.Key]:
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, a.Key)
		}
		seen[a.Key] = true
	}
	return &f, nil
}
