package exemptions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML layout of an external rule catalog.
type catalogFile struct {
	Rules []*Rule `yaml:"rules"`
}

// LoadFile reads a YAML rule catalog into an in-memory store. File order is
// match order.
func LoadFile(path string) (*InMemoryRuleStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no rules", path)
	}

	store := NewInMemoryRuleStore()
	for _, rule := range file.Rules {
		if rule.Code == "" {
			return nil, fmt.Errorf("catalog file %s contains a rule without a code", path)
		}
		if err := store.Add(rule); err != nil {
			return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
		}
	}

	return store, nil
}
