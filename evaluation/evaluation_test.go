package evaluation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcpagents/internal/testutil"
	"github.com/hupe1980/mcpagents/tool"
)

func sample() *Result {
	return &Result{Criteria: []CriteriaScore{
		{Criteria: "Completeness", MaxPoints: 10, Points: 10},
		{Criteria: "Accuracy", MaxPoints: 10, Points: 10},
		{Criteria: "Simplicity", Notes: "use **", MaxPoints: 10, Points: 4},
		{Criteria: "Clarity", Notes: "add comments", MaxPoints: 10, Points: 9},
	}}
}

func TestResult_Grades(t *testing.T) {
	r := sample()

	assert.Equal(t, 33, r.Points())
	assert.Equal(t, 40, r.MaxPoints())
	assert.InDelta(t, 0.825, r.Grade(), 1e-9)
	assert.Equal(t, "B", r.LetterGrade())
	assert.Equal(t, map[string]string{"Simplicity": "use **", "Clarity": "add comments"}, r.Feedback())
}

func TestResult_LetterGradeBoundaries(t *testing.T) {
	cases := map[int]string{10: "A", 9: "A", 8: "B", 7: "C", 6: "D", 5: "F", 0: "F"}
	for points, want := range cases {
		r := &Result{Criteria: []CriteriaScore{{Criteria: "x", MaxPoints: 10, Points: points}}}
		assert.Equal(t, want, r.LetterGrade(), "points=%d", points)
	}

	assert.Equal(t, 0.0, (&Result{}).Grade())
}

func TestParseResult(t *testing.T) {
	res, err := ParseResult(map[string]any{
		"criteria": []any{
			map[string]any{"criteria": "Accuracy", "notes": "", "max_points": 10.0, "points": 7.0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "C", res.LetterGrade())

	_, err = ParseResult(map[string]any{"criteria": []any{}})
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = ParseResult(map[string]any{
		"criteria": []any{map[string]any{"criteria": "Accuracy", "max_points": 5.0, "points": 7.0}},
	})
	assert.ErrorIs(t, err, ErrInvalidResult)

	_, err = ParseResult(map[string]any{"criteria": "all good"})
	assert.ErrorIs(t, err, ErrInvalidResult)
}

func TestResult_MarshalJSONIncludesGrades(t *testing.T) {
	b, err := sample().MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"letter_grade":"B"`)
	assert.Contains(t, string(b), `"criteria":[`)
}

func TestSuccessSchema_ValidatesPayload(t *testing.T) {
	schema := SuccessSchema()

	assert.NoError(t, tool.ValidateArguments(schema, map[string]any{"criteria": []any{}}))
	assert.Error(t, tool.ValidateArguments(schema, map[string]any{}))
	assert.Error(t, tool.ValidateArguments(schema, map[string]any{"criteria": "text"}))
}

func TestBuildTask(t *testing.T) {
	task, err := BuildTask("square a number", "x*x", "", nil)
	require.NoError(t, err)
	assert.Contains(t, task, "square a number")
	assert.Contains(t, task, "| Completeness |")
	assert.NotContains(t, task, "conversation history")

	trace := testutil.NewConversationBuilder().
		User(strings.Repeat("a", 2000)).
		Call("c1", "calc", map[string]any{"x": 2}).
		Result("c1", "calc", 4).
		Messages()

	task, err = BuildTask("square a number", "4", "| Accuracy | correct | 10 |", trace)
	require.NoError(t, err)
	assert.Contains(t, task, "conversation history")
	assert.Contains(t, task, "name: calc")
	assert.Contains(t, task, strings.Repeat("a", 1024)+"...")
	assert.NotContains(t, task, strings.Repeat("a", 1025))
}
