package correlation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/valyala/fastjson"

	"quietlog/internal/config"
	"quietlog/internal/constants"
	"quietlog/pkg/cel"
	pkgerrors "quietlog/pkg/errors"
)

// FieldMatcher is a predicate over a single field value. A value of the
// wrong JSON type never matches.
type FieldMatcher interface {
	Match(v *fastjson.Value) bool
	Kind() string
}

type stringEquals struct {
	expected string
}

func (m stringEquals) Kind() string { return constants.MatcherEquals }

func (m stringEquals) Match(v *fastjson.Value) bool {
	s, ok := stringValue(v)
	return ok && strings.EqualFold(s, m.expected)
}

type intEquals struct {
	expected int64
}

func (m intEquals) Kind() string { return constants.MatcherEqualsInt }

func (m intEquals) Match(v *fastjson.Value) bool {
	n, ok := intValue(v)
	return ok && n == m.expected
}

type stringOneOf struct {
	expected []string
}

func (m stringOneOf) Kind() string { return constants.MatcherOneOf }

func (m stringOneOf) Match(v *fastjson.Value) bool {
	s, ok := stringValue(v)
	if !ok {
		return false
	}
	for _, e := range m.expected {
		if strings.EqualFold(s, e) {
			return true
		}
	}
	return false
}

type intOneOf struct {
	expected map[int64]struct{}
}

func (m intOneOf) Kind() string { return constants.MatcherOneOfInt }

func (m intOneOf) Match(v *fastjson.Value) bool {
	n, ok := intValue(v)
	if !ok {
		return false
	}
	_, found := m.expected[n]
	return found
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) Kind() string { return constants.MatcherRegex }

func (m regexMatcher) Match(v *fastjson.Value) bool {
	s, ok := stringValue(v)
	return ok && m.re.MatchString(s)
}

type exprMatcher struct {
	program celgo.Program
}

func (m exprMatcher) Kind() string { return constants.MatcherExpr }

// Match treats evaluation errors, such as calling a string method on a
// number, as a non-match.
func (m exprMatcher) Match(v *fastjson.Value) bool {
	ok, err := cel.EvaluatePredicate(context.Background(), m.program, nativeValue(v))
	return err == nil && ok
}

func stringValue(v *fastjson.Value) (string, bool) {
	if v == nil || v.Type() != fastjson.TypeString {
		return "", false
	}
	b, err := v.StringBytes()
	if err != nil {
		return "", false
	}
	return string(b), true
}

// intValue accepts only numbers written as integers that fit in int64, so
// 1.0 and 1e3 are not integers.
func intValue(v *fastjson.Value) (int64, bool) {
	if v == nil || v.Type() != fastjson.TypeNumber {
		return 0, false
	}
	n, err := v.Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

// nativeValue converts a JSON value into the plain Go data CEL understands.
func nativeValue(v *fastjson.Value) interface{} {
	if v == nil {
		return nil
	}
	switch v.Type() {
	case fastjson.TypeString:
		s, _ := stringValue(v)
		return s
	case fastjson.TypeNumber:
		if n, ok := intValue(v); ok {
			return n
		}
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeArray:
		items := v.GetArray()
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			out = append(out, nativeValue(item))
		}
		return out
	case fastjson.TypeObject:
		obj := v.GetObject()
		out := make(map[string]interface{}, obj.Len())
		obj.Visit(func(key []byte, item *fastjson.Value) {
			out[string(key)] = nativeValue(item)
		})
		return out
	default:
		return nil
	}
}

// NewFieldMatcher compiles one tagged matcher definition. Regular
// expressions and CEL predicates are compiled here, once, so a bad pattern
// fails at startup rather than on some later line.
func NewFieldMatcher(def config.MatcherConfig, evaluator *cel.Evaluator) (FieldMatcher, error) {
	switch def.Kind {
	case constants.MatcherEquals:
		s, ok := def.Value.(string)
		if !ok {
			return nil, invalidRule(def, "expects a string value, got %T", def.Value)
		}
		return stringEquals{expected: s}, nil

	case constants.MatcherEqualsInt:
		n, ok := toInt64(def.Value)
		if !ok {
			return nil, invalidRule(def, "expects an integer value, got %v", def.Value)
		}
		return intEquals{expected: n}, nil

	case constants.MatcherOneOf:
		items, ok := toList(def.Value)
		if !ok {
			return nil, invalidRule(def, "expects a list of strings, got %T", def.Value)
		}
		expected := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, invalidRule(def, "expects a list of strings, found %v", item)
			}
			expected = append(expected, s)
		}
		return stringOneOf{expected: expected}, nil

	case constants.MatcherOneOfInt:
		items, ok := toList(def.Value)
		if !ok {
			return nil, invalidRule(def, "expects a list of integers, got %T", def.Value)
		}
		expected := make(map[int64]struct{}, len(items))
		for _, item := range items {
			n, ok := toInt64(item)
			if !ok {
				return nil, invalidRule(def, "expects a list of integers, found %v", item)
			}
			expected[n] = struct{}{}
		}
		return intOneOf{expected: expected}, nil

	case constants.MatcherRegex:
		pattern, ok := def.Value.(string)
		if !ok {
			return nil, invalidRule(def, "expects a pattern string, got %T", def.Value)
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, invalidRule(def, "invalid pattern %q", pattern).WithCause(err)
		}
		return regexMatcher{re: re}, nil

	case constants.MatcherExpr:
		expression, ok := def.Value.(string)
		if !ok {
			return nil, invalidRule(def, "expects an expression string, got %T", def.Value)
		}
		if evaluator == nil {
			return nil, invalidRule(def, "no expression evaluator available")
		}
		program, err := evaluator.CompilePredicate(expression)
		if err != nil {
			return nil, invalidRule(def, "invalid expression %q", expression).WithCause(err)
		}
		return exprMatcher{program: program}, nil

	default:
		return nil, invalidRule(def, "unknown matcher kind %q", def.Kind)
	}
}

func invalidRule(def config.MatcherConfig, format string, args ...interface{}) *pkgerrors.Error {
	msg := fmt.Sprintf("field %q: %s matcher ", def.Field, def.Kind) + fmt.Sprintf(format, args...)
	return pkgerrors.ErrInvalidRule.
		WithDetail("message", msg).
		WithDetail("field", def.Field).
		WithDetail("kind", def.Kind)
}

func toList(v interface{}) ([]interface{}, bool) {
	switch list := v.(type) {
	case []interface{}:
		return list, true
	case []string:
		out := make([]interface{}, 0, len(list))
		for _, s := range list {
			out = append(out, s)
		}
		return out, true
	case []int:
		out := make([]interface{}, 0, len(list))
		for _, n := range list {
			out = append(out, n)
		}
		return out, true
	case []int64:
		out := make([]interface{}, 0, len(list))
		for _, n := range list {
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
