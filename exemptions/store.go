package exemptions

import (
	"fmt"
	"sync"

	"github.com/tariffdesk/stacking/tariff"
)

// RuleStore manages exemption rule persistence and retrieval. List order is
// significant: it is the order rules are matched in.
type RuleStore interface {
	// Add a new rule at the end of the match order
	Add(rule *Rule) error

	// Get a rule by code
	Get(code string) (*Rule, error)

	// List all rules in match order
	List() ([]*Rule, error)

	// Update an existing rule in place
	Update(rule *Rule) error

	// Delete a rule
	Delete(code string) error
}

// InMemoryRuleStore implements RuleStore with an ordered slice guarded by a
// RWMutex. It backs the built-in catalog and the YAML file source.
type InMemoryRuleStore struct {
	rules []*Rule
	index map[string]int
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates an empty in-memory rule store.
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		index: make(map[string]int),
	}
}

// NewBuiltinRuleStore creates an in-memory store preloaded with the
// built-in catalog.
func NewBuiltinRuleStore() *InMemoryRuleStore {
	s := NewInMemoryRuleStore()
	for _, rule := range BuiltinRules() {
		// Built-in codes are unique; Add cannot fail here.
		_ = s.Add(rule)
	}
	return s
}

// Add appends a rule, enforcing unique codes.
func (s *InMemoryRuleStore) Add(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[rule.Code]; exists {
		return fmt.Errorf("rule with code %s already exists", rule.Code)
	}
	s.index[rule.Code] = len(s.rules)
	s.rules = append(s.rules, rule)
	return nil
}

// Get retrieves a rule by code.
func (s *InMemoryRuleStore) Get(code string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, exists := s.index[code]
	if !exists {
		return nil, fmt.Errorf("rule with code %s not found", code)
	}
	return s.rules[i], nil
}

// List returns all rules in match order.
func (s *InMemoryRuleStore) List() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// Update replaces an existing rule, keeping its position.
func (s *InMemoryRuleStore) Update(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[rule.Code]
	if !exists {
		return fmt.Errorf("rule with code %s not found", rule.Code)
	}
	s.rules[i] = rule
	return nil
}

// Delete removes a rule from the store.
func (s *InMemoryRuleStore) Delete(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[code]
	if !exists {
		return fmt.Errorf("rule with code %s not found", code)
	}
	s.rules = append(s.rules[:i], s.rules[i+1:]...)
	delete(s.index, code)
	for j := i; j < len(s.rules); j++ {
		s.index[s.rules[j].Code] = j
	}
	return nil
}

// filterForCategory keeps rules attached to cat, preserving match order.
func filterForCategory(rules []*Rule, cat tariff.Category) []*Rule {
	var out []*Rule
	for _, r := range rules {
		if r.AppliesToCategory(cat) {
			out = append(out, r)
		}
	}
	return out
}
