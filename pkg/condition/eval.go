package condition

import "fmt"

type literalExpr struct {
	value bool
}

func (e *literalExpr) Eval(map[string]any) bool { return e.value }

func (e *literalExpr) String() string {
	if e.value {
		return "true"
	}
	return "false"
}

type existsExpr struct {
	key string
}

func (e *existsExpr) Eval(state map[string]any) bool {
	_, ok := state[e.key]
	return ok
}

func (e *existsExpr) String() string { return e.key }

type eqExpr struct {
	key   string
	value string
}

func (e *eqExpr) Eval(state map[string]any) bool {
	v, ok := state[e.key]
	if !ok {
		return false
	}
	return stringify(v) == e.value
}

func (e *eqExpr) String() string { return fmt.Sprintf("%s == '%s'", e.key, e.value) }

type containsExpr struct {
	value string
	key   string
}

func (e *containsExpr) Eval(state map[string]any) bool {
	v, ok := state[e.key]
	if !ok {
		return false
	}
	switch coll := v.(type) {
	case []string:
		for _, item := range coll {
			if item == e.value {
				return true
			}
		}
	case []any:
		for _, item := range coll {
			if stringify(item) == e.value {
				return true
			}
		}
	case map[string]any:
		_, ok := coll[e.value]
		return ok
	}
	return false
}

func (e *containsExpr) String() string { return fmt.Sprintf("'%s' in %s", e.value, e.key) }

type notExpr struct {
	inner Expr
}

func (e *notExpr) Eval(state map[string]any) bool { return !e.inner.Eval(state) }

func (e *notExpr) String() string { return "!(" + e.inner.String() + ")" }

type andExpr struct {
	left, right Expr
}

func (e *andExpr) Eval(state map[string]any) bool {
	return e.left.Eval(state) && e.right.Eval(state)
}

func (e *andExpr) String() string {
	return "(" + e.left.String() + " && " + e.right.String() + ")"
}

type orExpr struct {
	left, right Expr
}

func (e *orExpr) Eval(state map[string]any) bool {
	return e.left.Eval(state) || e.right.Eval(state)
}

func (e *orExpr) String() string {
	return "(" + e.left.String() + " || " + e.right.String() + ")"
}

// stringify normalizes scalar state values for comparison. Conditions are
// untyped: everything compares through its string form.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
