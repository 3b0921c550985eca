package condition_test

import (
	"testing"

	"github.com/gardenfork/espalier/pkg/condition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrors(t *testing.T) {
	cases := []string{
		"",
		"&&",
		"a ==",
		"a == ",
		"'lit'",
		"'lit' in",
		"(a == 'b'",
		"a = 'b'",
		"a & b",
		"a || ",
		"'unterminated in x",
		"a == 'b' extra",
		"#bad",
	}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			_, err := condition.Parse(input)
			assert.Error(t, err, "input %q should not parse", input)
		})
	}
}

func TestEval(t *testing.T) {
	state := map[string]any{
		"phase":    "review",
		"retries":  3,
		"approved": true,
		"tags":     []string{"urgent", "infra"},
		"owners":   []any{"ana", "li"},
	}

	cases := []struct {
		expr string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"phase", true},
		{"missing", false},
		{"!missing", true},
		{"phase == 'review'", true},
		{"phase == 'draft'", false},
		{"missing == 'anything'", false},
		{"retries == '3'", true},
		{"approved == 'true'", true},
		{"'urgent' in tags", true},
		{"'calm' in tags", false},
		{"'li' in owners", true},
		{"'x' in missing", false},
		{"'x' in phase", false},
		{"phase == 'review' && approved", true},
		{"phase == 'draft' || 'urgent' in tags", true},
		{"!(phase == 'draft') && (approved || missing)", true},
		{"phase == 'draft' && true || approved", true},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			expr, err := condition.Parse(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, expr.Eval(state))
		})
	}
}

func TestMissingKeysNeverError(t *testing.T) {
	// Untyped semantics: references to keys no step ever set are simply
	// absent, not evaluation failures.
	expr := condition.MustParse("ghost == 'x' || 'y' in ghost || ghost")
	assert.False(t, expr.Eval(map[string]any{}))
	assert.False(t, expr.Eval(nil))
}

func TestStringRoundTrip(t *testing.T) {
	expr := condition.MustParse("a == 'b' && ('c' in d || !e)")
	reparsed, err := condition.Parse(expr.String())
	require.NoError(t, err)

	state := map[string]any{"a": "b", "d": []string{"c"}}
	assert.Equal(t, expr.Eval(state), reparsed.Eval(state))
}
