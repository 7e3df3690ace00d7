package correlation

import (
	"fmt"

	"quietlog/internal/config"
	"quietlog/pkg/cel"
)

// FieldRule pairs a field name with the matcher applied to its value.
type FieldRule struct {
	Field   string
	Matcher FieldMatcher
}

// Rule matches a record when any of its field rules matches. A field that
// is absent from the record simply does not match.
type Rule struct {
	Name   string
	Fields []FieldRule
}

func (r Rule) Matches(rec *Record) bool {
	for _, fr := range r.Fields {
		v := rec.Field(fr.Field)
		if v != nil && fr.Matcher.Match(v) {
			return true
		}
	}
	return false
}

// RuleSet matches a record when any of its rules matches. An empty set
// never matches.
type RuleSet []Rule

func (rs RuleSet) Matches(rec *Record) bool {
	for _, rule := range rs {
		if rule.Matches(rec) {
			return true
		}
	}
	return false
}

// Evaluate reports whether rec matches the flush rules and, separately,
// the completion rules.
func Evaluate(rec *Record, flush, completion RuleSet) (flushed bool, completed bool) {
	flushed = flush.Matches(rec)
	completed = completion.Matches(rec)
	return flushed, completed
}

// CompileRuleSet builds a RuleSet from its configuration. The first
// invalid matcher aborts compilation.
func CompileRuleSet(triggers []config.TriggerConfig, evaluator *cel.Evaluator) (RuleSet, error) {
	rules := make(RuleSet, 0, len(triggers))
	for i, trigger := range triggers {
		name := trigger.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i)
		}

		rule := Rule{
			Name:   name,
			Fields: make([]FieldRule, 0, len(trigger.Match)),
		}
		for _, def := range trigger.Match {
			matcher, err := NewFieldMatcher(def, evaluator)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", name, err)
			}
			rule.Fields = append(rule.Fields, FieldRule{Field: def.Field, Matcher: matcher})
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
