package rendering

import "fmt"

// EvaluateBool implements the boolean expression evaluator described in
// the templating engine's contract: a literal boolean is returned as
// is; a string is rejected if it contains directive-opening characters
// ("{{", "}}", "{%", "%}") since a bare boolean expression is not a
// template; otherwise the string is parsed and evaluated through the
// same grammar backing {{ }} substitution, and the result must itself
// be a boolean.
func EvaluateBool(value any, bindings map[string]any) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	s, ok := value.(string)
	if !ok {
		return false, fmt.Errorf("rendering: boolean expression must be a bool or string, got %T", value)
	}
	if HasDirectives(s) {
		return false, &InvalidExpressionError{Expr: s, Reason: "must be a bare expression, not a template"}
	}
	v, err := evalExpr(s, bindings)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &InvalidExpressionError{Expr: s, Reason: "does not evaluate to a boolean"}
	}
	return b, nil
}
