package score

import (
	"encoding/json"
	"math"

	"panorama/internal/model"
)

// ScoredSubmission is one completed submission with every mapped question resolved
// once. Scores holds only valid (> 0) answers; Texts holds verbatim free text.
type ScoredSubmission struct {
	AssignmentID string
	SubmissionID string
	Subject      model.Subject
	Evaluator    model.Evaluator
	// Relationship is the canonical label, "Self" when IsSelf matched.
	Relationship string
	// StatedRelationship is the label as recorded on the assignment.
	StatedRelationship string
	Self               bool
	Scores             map[string]float64
	Texts              map[string]string
}

// Score returns the valid score for key.
func (s *ScoredSubmission) Score(key string) (float64, bool) {
	v, found := s.Scores[key]
	return v, found
}

// Options tune the ranking aggregations.
type Options struct {
	// Threshold splits high from low scores; equal values count as high.
	Threshold float64
	// Limit caps every ranked list.
	Limit int
}

// DefaultOptions returns threshold 3.0 and a limit of 10 entries per list.
func DefaultOptions() Options {
	return Options{Threshold: 3.0, Limit: 10}
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return DefaultOptions().Limit
	}
	return o.Limit
}

// CompetencyKey identifies a competency within its cluster.
type CompetencyKey struct {
	Cluster    string `json:"cluster"`
	Competency string `json:"competency"`
}

// CompetencySplit holds self and others averages for one competency.
// Nil averages mean no data and encode as JSON null.
type CompetencySplit struct {
	CompetencyKey
	Self        *float64 `json:"self"`
	Others      *float64 `json:"others"`
	SelfCount   int      `json:"selfCount"`
	OthersCount int      `json:"othersCount"`
	Insights    []string `json:"insights,omitempty"`
}

// Stat counts assignments for one relationship. Remaining is always derived.
type Stat struct {
	Sent      int `json:"sent"`
	Completed int `json:"completed"`
}

// Remaining returns the assignments still waiting for a completed submission.
func (s Stat) Remaining() int {
	return s.Sent - s.Completed
}

// Add accumulates other into s.
func (s *Stat) Add(other Stat) {
	s.Sent += other.Sent
	s.Completed += other.Completed
}

func (s Stat) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sent      int `json:"sent"`
		Completed int `json:"completed"`
		Remaining int `json:"remaining"`
	}{s.Sent, s.Completed, s.Remaining()})
}

// RelationshipStat is the completion stat of one relationship.
type RelationshipStat struct {
	Relationship string
	Stat
}

func (r RelationshipStat) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Relationship string `json:"relationship"`
		Sent         int    `json:"sent"`
		Completed    int    `json:"completed"`
		Remaining    int    `json:"remaining"`
	}{r.Relationship, r.Sent, r.Completed, r.Remaining()})
}

// RankedQuestion is one entry of the high or low scores list.
type RankedQuestion struct {
	Rank       int     `json:"rank"`
	Key        string  `json:"key"`
	Text       string  `json:"text"`
	Cluster    string  `json:"cluster"`
	Competency string  `json:"competency"`
	Average    float64 `json:"average"`
	Responses  int     `json:"responses"`
}

// GapRow is one entry of the latent strengths or blindspots list.
type GapRow struct {
	Rank       int     `json:"rank"`
	Key        string  `json:"key"`
	Text       string  `json:"text"`
	Cluster    string  `json:"cluster"`
	Competency string  `json:"competency"`
	Self       float64 `json:"self"`
	Others     float64 `json:"others"`
	Gap        float64 `json:"gap"`
}

// Round2 rounds half away from zero to two decimals, so Round2(-x) == -Round2(x).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// mean accumulates values for an average.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() (float64, bool) {
	if m.n == 0 {
		return 0, false
	}
	return m.sum / float64(m.n), true
}

// rounded returns the two decimal average, or nil when empty.
func (m mean) rounded() *float64 {
	v, ok := m.value()
	if !ok {
		return nil
	}
	r := Round2(v)
	return &r
}
