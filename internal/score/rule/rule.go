package rule

import (
	"errors"
	"fmt"
	"log/slog"

	"panorama/internal/score"

	"github.com/google/cel-go/cel"
)

// ErrNotBool is returned by Init when the When expression does not evaluate to a bool.
var ErrNotBool = errors.New("rule condition must return bool")

// Rule tags a competency row with a label.
// When is a CEL expression over self, others, gap (double) and hasSelf, hasOthers (bool).
// Then is the label attached to the row when the expression is true.
type Rule struct {
	When string `yaml:"when"`
	Then string `yaml:"then"`

	program cel.Program
}

// NewEnv declares the variables a rule condition may use.
func NewEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("self", cel.DoubleType),
		cel.Variable("others", cel.DoubleType),
		cel.Variable("gap", cel.DoubleType),
		cel.Variable("hasSelf", cel.BoolType),
		cel.Variable("hasOthers", cel.BoolType),
	)
}

// Init compiles When against env. Syntax errors, type errors and non-bool
// expressions are reported.
func (r *Rule) Init(env *cel.Env) error {
	if r.Then == "" {
		return fmt.Errorf("rule %q: empty label", r.When)
	}

	ast, iss := env.Parse(r.When)
	if iss.Err() != nil {
		return iss.Err()
	}

	checked, iss := env.Check(ast)
	if iss.Err() != nil {
		return iss.Err()
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("rule %q: %w", r.When, ErrNotBool)
	}

	var err error
	r.program, err = env.Program(checked)
	if err != nil {
		return err
	}

	return nil
}

// Input returns the rule variables for one competency split. Missing averages
// are zero and flagged through hasSelf and hasOthers; gap is others minus self
// when both are present, zero otherwise.
func Input(split score.CompetencySplit) map[string]any {
	in := map[string]any{
		"self":      0.0,
		"others":    0.0,
		"gap":       0.0,
		"hasSelf":   split.Self != nil,
		"hasOthers": split.Others != nil,
	}
	if split.Self != nil {
		in["self"] = *split.Self
	}
	if split.Others != nil {
		in["others"] = *split.Others
	}
	if split.Self != nil && split.Others != nil {
		in["gap"] = score.Round2(*split.Others - *split.Self)
	}
	return in
}

// Eval reports whether the rule matches the variables in vars.
// Execution errors count as no match.
func (r *Rule) Eval(vars map[string]any) (bool, error) {
	if r.program == nil {
		return false, fmt.Errorf("rule %q: not initialised", r.When)
	}
	result, _, err := r.program.Eval(vars)
	if err != nil {
		return false, err
	}
	matched, ok := result.Value().(bool)
	return ok && matched, nil
}

// Set is an ordered list of compiled rules.
type Set []Rule

// Labels returns the labels of every rule matching split, in rule order,
// without duplicates.
func (s Set) Labels(split score.CompetencySplit) []string {
	vars := Input(split)
	var labels []string
	seen := make(map[string]bool)
	for i := range s {
		matched, err := s[i].Eval(vars)
		if err != nil {
			slog.Warn("Unable to evaluate insight rule", "rule", s[i].When, "error", err)
			continue
		}
		if matched && !seen[s[i].Then] {
			seen[s[i].Then] = true
			labels = append(labels, s[i].Then)
		}
	}
	return labels
}

// Apply sets the Insights of every split.
func (s Set) Apply(splits []score.CompetencySplit) {
	if len(s) == 0 {
		return
	}
	for i := range splits {
		splits[i].Insights = s.Labels(splits[i])
	}
}
