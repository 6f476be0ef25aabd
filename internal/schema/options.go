package schema

import (
	"golang.org/x/text/cases"
)

// OptionScores maps option labels to integer scores. Keys are compared after Unicode
// case folding, so "Satisfied" and "satisfied" address the same entry.
// The zero value is an empty, read-only container.
type OptionScores struct {
	scores map[string]int
}

// NewOptionScores builds a container from label/score pairs.
func NewOptionScores(pairs map[string]int) OptionScores {
	var o OptionScores
	for label, score := range pairs {
		o.add(label, score)
	}
	return o
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// add keeps the first score registered for a label.
func (o *OptionScores) add(label string, score int) {
	if label == "" {
		return
	}
	if o.scores == nil {
		o.scores = make(map[string]int)
	}
	key := fold(label)
	if _, exists := o.scores[key]; exists {
		return
	}
	o.scores[key] = score
}

// Lookup returns the score registered for label, ignoring case.
func (o OptionScores) Lookup(label string) (int, bool) {
	if len(o.scores) == 0 {
		return 0, false
	}
	score, found := o.scores[fold(label)]
	return score, found
}

// Len returns the number of distinct labels.
func (o OptionScores) Len() int {
	return len(o.scores)
}
