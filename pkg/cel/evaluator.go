package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// ValueVariable is the name under which a field's value is exposed to
// predicate expressions.
const ValueVariable = "value"

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(ValueVariable, cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidatePredicate(expression string) error {
	_, err := e.compile(expression)
	return err
}

func (e *Evaluator) compile(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("predicate expression must return bool, got %v", out)
	}

	return ast, nil
}

// CompilePredicate checks and plans expression once so that evaluation on
// the hot path never compiles.
func (e *Evaluator) CompilePredicate(expression string) (cel.Program, error) {
	ast, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

// EvaluatePredicate runs a compiled predicate against a single value.
// Values must be plain Go data: string, int64, float64, bool, nil,
// []interface{} or map[string]interface{}.
func EvaluatePredicate(ctx context.Context, program cel.Program, value interface{}) (bool, error) {
	result, _, err := program.ContextEval(ctx, map[string]interface{}{
		ValueVariable: value,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
