package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/mcpagents/tool"
)

// ErrInvalidResult reports an evaluation payload that does not describe a
// usable criteria table.
var ErrInvalidResult = errors.New("invalid evaluation result")

// Letter grade thresholds on the points / max points ratio.
const (
	ThresholdA = 0.9
	ThresholdB = 0.8
	ThresholdC = 0.7
	ThresholdD = 0.6
)

// CriteriaScore is one scored row of the criteria table.
type CriteriaScore struct {
	Criteria  string `json:"criteria"`
	Notes     string `json:"notes"`
	MaxPoints int    `json:"max_points"`
	Points    int    `json:"points"`
}

// Result is the structured outcome of an evaluation.
type Result struct {
	Criteria []CriteriaScore `json:"criteria"`
}

// Points returns the sum of awarded points.
func (r *Result) Points() int {
	total := 0
	for _, c := range r.Criteria {
		total += c.Points
	}
	return total
}

// MaxPoints returns the sum of attainable points.
func (r *Result) MaxPoints() int {
	total := 0
	for _, c := range r.Criteria {
		total += c.MaxPoints
	}
	return total
}

// Grade returns points / max points, or 0 when nothing is attainable.
func (r *Result) Grade() float64 {
	maxPoints := r.MaxPoints()
	if maxPoints == 0 {
		return 0
	}
	return float64(r.Points()) / float64(maxPoints)
}

// LetterGrade maps Grade onto A-F.
func (r *Result) LetterGrade() string {
	g := r.Grade()
	switch {
	case g >= ThresholdA:
		return "A"
	case g >= ThresholdB:
		return "B"
	case g >= ThresholdC:
		return "C"
	case g >= ThresholdD:
		return "D"
	default:
		return "F"
	}
}

// Feedback returns criteria → notes for every row that carries notes.
func (r *Result) Feedback() map[string]string {
	out := make(map[string]string, len(r.Criteria))
	for _, c := range r.Criteria {
		if c.Notes != "" {
			out[c.Criteria] = c.Notes
		}
	}
	return out
}

// Validate checks that every row is named and scored within bounds.
func (r *Result) Validate() error {
	if len(r.Criteria) == 0 {
		return fmt.Errorf("%w: no criteria scored", ErrInvalidResult)
	}

	var errs []error
	for i, c := range r.Criteria {
		if c.Criteria == "" {
			errs = append(errs, fmt.Errorf("criteria[%d]: name is empty", i))
		}
		if c.MaxPoints < 0 || c.Points < 0 {
			errs = append(errs, fmt.Errorf("criteria[%d] %q: points must not be negative", i, c.Criteria))
		}
		if c.Points > c.MaxPoints {
			errs = append(errs, fmt.Errorf("criteria[%d] %q: %d points exceed maximum of %d", i, c.Criteria, c.Points, c.MaxPoints))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidResult, errors.Join(errs...))
	}

	return nil
}

// MarshalJSON adds the derived grades to the criteria table.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Grade       float64 `json:"grade"`
		LetterGrade string  `json:"letter_grade"`
	}{plain(r), r.Grade(), r.LetterGrade()})
}

// ParseResult decodes a report_success payload into a validated Result.
func ParseResult(payload map[string]any) (*Result, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	if err := res.Validate(); err != nil {
		return nil, err
	}

	return &res, nil
}

// SuccessSchema is the report_success payload expected from the evaluator.
func SuccessSchema() tool.Schema {
	return tool.Schema{Parameters: []tool.Parameter{{
		Name:        "criteria",
		Type:        "array",
		Description: "The criteria for the evaluation, one entry per row of the criteria table.",
		Required:    true,
		Extra: map[string]any{
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"criteria":   map[string]any{"type": "string", "description": "The description of the criteria."},
					"notes":      map[string]any{"type": "string", "description": "Any notes on the criteria."},
					"max_points": map[string]any{"type": "integer", "minimum": 0, "description": "The maximum points of the score part."},
					"points":     map[string]any{"type": "integer", "minimum": 0, "description": "The points of the score part."},
				},
				"required": []any{"criteria", "notes", "max_points", "points"},
			},
		},
	}}}
}
