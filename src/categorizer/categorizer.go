// Package categorizer assigns a spending category to a transaction using an
// ordered list of substring rules over the transaction and merchant names,
// with Plaid's coarse category hints as a fallback. Classification is pure
// and deterministic: same inputs, same label, no I/O.
package categorizer

import (
	"fmt"
	"os"
	"strings"

	"github.com/username/expensio/backend/src/models"
	"gopkg.in/yaml.v3"
)

// Rule maps a set of substring patterns to a category. Rules are evaluated
// in order and the first rule with any matching pattern wins, so order is a
// designed priority: specific rules ("coffee") must precede generic ones
// ("restaurant").
type Rule struct {
	Patterns []string `yaml:"patterns"`
	Category string   `yaml:"category"`
}

// HintMapping maps Plaid category hints to a local category label. Like
// rules, mappings are evaluated in order.
type HintMapping struct {
	Hints    []string `yaml:"hints"`
	Category string   `yaml:"category"`
}

type Categorizer struct {
	rules        []Rule
	hintMappings []HintMapping
}

// New builds a Categorizer from an explicit rule table. The hint fallback
// table is fixed.
func New(rules []Rule) *Categorizer {
	return &Categorizer{
		rules:        rules,
		hintMappings: defaultHintMappings,
	}
}

// NewDefault builds a Categorizer with the built-in rule table.
func NewDefault() *Categorizer {
	return New(defaultRules)
}

// NewFromFile loads the rule table from a YAML file. The file holds a plain
// list of {patterns, category} entries in priority order.
func NewFromFile(path string) (*Categorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing category rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("category rules file %s contains no rules", path)
	}
	for _, r := range rules {
		if !models.IsValidCategory(r.Category) {
			return nil, fmt.Errorf("category rules file %s references unknown category %q", path, r.Category)
		}
	}
	return New(rules), nil
}

// Categorize returns the category for a transaction given its name, an
// optional merchant name, and Plaid's category hints. Falls back to
// "Uncategorized" when nothing matches.
func (c *Categorizer) Categorize(name, merchantName string, providerCategories []string) string {
	haystack := strings.ToLower(name + " " + merchantName)

	for _, rule := range c.rules {
		for _, pattern := range rule.Patterns {
			if strings.Contains(haystack, pattern) {
				return rule.Category
			}
		}
	}

	// No rule matched; fall back to the provider's coarse hints.
	hints := strings.ToLower(strings.Join(providerCategories, " "))
	if hints != "" {
		for _, mapping := range c.hintMappings {
			for _, hint := range mapping.Hints {
				if strings.Contains(hints, hint) {
					return mapping.Category
				}
			}
		}
	}

	return models.CategoryUncategorized
}
