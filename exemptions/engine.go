package exemptions

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/tariffdesk/stacking/tariff"
)

// Catalog serves exemption rules and evaluates their conditions. Structured
// conditions are checked directly; CEL expression conditions are compiled
// once up front and evaluated against the shipment facts. Safe for
// concurrent use.
type Catalog struct {
	env      *cel.Env
	store    RuleStore
	cache    RulesCache
	programs map[string]cel.Program // rule code -> compiled condition
	mu       sync.RWMutex
}

// NewCatalog creates a catalog over the given store and compiles every rule
// expression, failing fast on a rule that does not compile.
func NewCatalog(store RuleStore) (*Catalog, error) {
	env, err := cel.NewEnv(
		cel.Variable("Origin", cel.StringType),
		cel.Variable("HSCode", cel.StringType),
		cel.Variable("Value", cel.DoubleType),
		cel.Variable("Answers", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	c := &Catalog{
		env:      env,
		store:    store,
		cache:    NewInMemoryRulesCache(DefaultCacheConfig()),
		programs: make(map[string]cel.Program),
	}

	if err := c.CompileAll(); err != nil {
		return nil, fmt.Errorf("failed to compile catalog: %w", err)
	}

	return c, nil
}

// CompileExpression compiles a single rule condition expression.
// A cost limit guards against runaway expressions from external catalogs.
func (c *Catalog) CompileExpression(code, expression string) error {
	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := c.env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return fmt.Errorf("program creation error: %w", err)
	}

	c.mu.Lock()
	c.programs[code] = prog
	c.mu.Unlock()

	return nil
}

// CompileAll compiles the expression condition of every stored rule and
// primes the list cache.
func (c *Catalog) CompileAll() error {
	rules, err := c.store.List()
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if rule.Conditions.Expression == "" {
			continue
		}
		if err := c.CompileExpression(rule.Code, rule.Conditions.Expression); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", rule.Code, err)
		}
	}

	c.cache.Set(rules)
	return nil
}

// AddRule validates, compiles, and stores a new rule.
func (c *Catalog) AddRule(rule *Rule) error {
	if _, err := c.store.Get(rule.Code); err == nil {
		return fmt.Errorf("rule with code %s already exists", rule.Code)
	}

	if rule.Conditions.Expression != "" {
		if err := c.CompileExpression(rule.Code, rule.Conditions.Expression); err != nil {
			return fmt.Errorf("rule validation failed: %w", err)
		}
	}

	if err := c.store.Add(rule); err != nil {
		c.mu.Lock()
		delete(c.programs, rule.Code)
		c.mu.Unlock()
		return err
	}

	c.cache.Invalidate()
	return nil
}

// rules returns the full catalog, from cache when possible.
func (c *Catalog) rules() ([]*Rule, error) {
	if cached := c.cache.Get(); cached != nil {
		return cached, nil
	}

	rules, err := c.store.List()
	if err != nil {
		return nil, err
	}
	c.cache.Set(rules)
	return rules, nil
}

// ForCategory returns the rules attached to a category, in match order.
func (c *Catalog) ForCategory(cat tariff.Category) ([]*Rule, error) {
	rules, err := c.rules()
	if err != nil {
		return nil, err
	}
	return filterForCategory(rules, cat), nil
}

// RuleApplies reports whether a rule's conditions hold for the shipment and
// answers. It is a pure predicate with no side effects; an expression that
// errors or yields a non-boolean counts as not applying.
func (c *Catalog) RuleApplies(rule *Rule, product tariff.ProductInfo, answers tariff.Answers) bool {
	if !conditionsMet(rule, product, answers) {
		return false
	}

	if rule.Conditions.Expression == "" {
		return true
	}

	c.mu.RLock()
	prog, exists := c.programs[rule.Code]
	c.mu.RUnlock()
	if !exists {
		return false
	}

	out, _, err := prog.Eval(map[string]any{
		"Origin":  product.OriginCountry,
		"HSCode":  product.HSCode,
		"Value":   product.Value,
		"Answers": map[string]any(answers),
	})
	if err != nil {
		return false
	}

	matched, ok := out.Value().(bool)
	return ok && matched
}

// conditionsMet checks the structured conditions in their mandated order:
// origin whitelist (fails closed), USMCA qualification, US melt/cast
// origin, minimum percentage threshold.
func conditionsMet(rule *Rule, product tariff.ProductInfo, answers tariff.Answers) bool {
	cond := rule.Conditions

	if len(cond.OriginCountries) > 0 {
		allowed := false
		for _, origin := range cond.OriginCountries {
			if origin == product.OriginCountry {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if cond.RequiresUSMCA && !answers.Bool(tariff.AnsUSMCAQualified) {
		return false
	}

	if cond.RequiresUSMeltCast && !usMeltCastSignaled(answers) {
		return false
	}

	if cond.MinPercentage != nil && !anyPercentExceeds(answers, *cond.MinPercentage) {
		return false
	}

	return true
}

// usMeltCastSignaled reports whether the answers confirm US-origin material
// that was melted/poured (steel) or smelted/cast (aluminum) in the US.
func usMeltCastSignaled(answers tariff.Answers) bool {
	if answers.Country(tariff.AnsSteelOriginCountry) == "US" && answers.Bool(tariff.AnsSteelMeltedPouredUS) {
		return true
	}
	if answers.Country(tariff.AnsAluminumOriginCountry) == "US" && answers.Bool(tariff.AnsAluminumSmeltedCastUS) {
		return true
	}
	return false
}

// anyPercentExceeds reports whether any numeric answer strictly exceeds the
// threshold.
func anyPercentExceeds(answers tariff.Answers, threshold float64) bool {
	for _, v := range answers {
		if f, ok := v.(float64); ok && f > threshold {
			return true
		}
	}
	return false
}
