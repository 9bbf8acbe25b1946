package eval

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/runnerguard/runnerguard/internal/models"
)

var (
	envOnce sync.Once
	celEnv  *cel.Env
	envErr  error
)

// Env is the shared CEL environment. Expressions see the resource as `resource`.
func Env() (*cel.Env, error) {
	envOnce.Do(func() {
		celEnv, envErr = cel.NewEnv(
			cel.Variable("resource", cel.MapType(cel.StringType, cel.DynType)),
		)
		if envErr != nil {
			envErr = fmt.Errorf("failed to create CEL environment: %w", envErr)
		}
	})
	return celEnv, envErr
}

// CompileExpression checks the expression returns bool and builds a program
func CompileExpression(expr string) (cel.Program, error) {
	env, err := Env()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}
	return prg, nil
}

// evalExpression fails closed on compile or runtime errors
func evalExpression(c models.Expression, obj map[string]interface{}) Outcome {
	prg := c.Program
	if prg == nil {
		var err error
		if prg, err = CompileExpression(c.Expr); err != nil {
			return Outcome{Field: c.Expr, Observed: err.Error()}
		}
	}

	if obj == nil {
		obj = map[string]interface{}{}
	}
	out, _, err := prg.Eval(map[string]interface{}{
		"resource": obj,
	})
	if err != nil {
		return Outcome{Field: c.Expr, Observed: err.Error()}
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return Outcome{Field: c.Expr, Observed: out.Value()}
	}
	return Outcome{Satisfied: passed, Field: c.Expr, Present: true}
}
