package exemptions

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/tariffdesk/stacking/tariff"
)

// PostgresRuleStore implements RuleStore backed by PostgreSQL. Match order
// is the position column; conditions are stored as JSONB.
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a new PostgreSQL-backed RuleStore.
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

// Add inserts a new rule at the end of the match order.
func (s *PostgresRuleStore) Add(rule *Rule) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM exemption_rules WHERE code = $1)
	`, rule.Code).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rule existence: %w", err)
	}
	if exists {
		return fmt.Errorf("rule with code %s already exists", rule.Code)
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO exemption_rules
			(code, name, description, categories, hs_code_prefixes, effect,
			 conditions, source, reference, valid_until, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			COALESCE((SELECT MAX(position) + 1 FROM exemption_rules), 0))
	`, rule.Code, rule.Name, rule.Description,
		pq.Array(categoryStrings(rule)), pq.Array(rule.AppliesToHSCodes),
		string(rule.Effect), conditions, rule.Source, rule.Reference, rule.ValidUntil)

	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// Get retrieves a rule by code.
func (s *PostgresRuleStore) Get(code string) (*Rule, error) {
	rule, err := scanRule(s.db.QueryRow(`
		SELECT code, name, description, categories, hs_code_prefixes, effect,
		       conditions, source, reference, valid_until
		FROM exemption_rules
		WHERE code = $1
	`, code))

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule %s not found", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// List returns all rules in match order.
func (s *PostgresRuleStore) List() ([]*Rule, error) {
	rows, err := s.db.Query(`
		SELECT code, name, description, categories, hs_code_prefixes, effect,
		       conditions, source, reference, valid_until
		FROM exemption_rules
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// Update modifies an existing rule, keeping its position.
func (s *PostgresRuleStore) Update(rule *Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE exemption_rules
		SET name = $1, description = $2, categories = $3, hs_code_prefixes = $4,
		    effect = $5, conditions = $6, source = $7, reference = $8, valid_until = $9
		WHERE code = $10
	`, rule.Name, rule.Description,
		pq.Array(categoryStrings(rule)), pq.Array(rule.AppliesToHSCodes),
		string(rule.Effect), conditions, rule.Source, rule.Reference, rule.ValidUntil,
		rule.Code)

	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s not found", rule.Code)
	}

	return nil
}

// Delete removes a rule.
func (s *PostgresRuleStore) Delete(code string) error {
	result, err := s.db.Exec(`
		DELETE FROM exemption_rules
		WHERE code = $1
	`, code)

	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s not found", code)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var rule Rule
	var categories, hsPrefixes pq.StringArray
	var effect string
	var conditions []byte

	err := row.Scan(&rule.Code, &rule.Name, &rule.Description, &categories,
		&hsPrefixes, &effect, &conditions, &rule.Source, &rule.Reference,
		&rule.ValidUntil)
	if err != nil {
		return nil, err
	}

	rule.Effect = Effect(effect)
	rule.AppliesToHSCodes = hsPrefixes
	for _, c := range categories {
		rule.Categories = append(rule.Categories, tariff.Category(c))
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("invalid conditions for rule %s: %w", rule.Code, err)
		}
	}

	return &rule, nil
}

func categoryStrings(rule *Rule) []string {
	out := make([]string, len(rule.Categories))
	for i, c := range rule.Categories {
		out[i] = string(c)
	}
	return out
}
