package report

import (
	"time"

	"panorama/internal/model"
	"panorama/internal/score"
)

// Kind names a report for run logging.
type Kind string

const (
	KindHierarchy      Kind = "hierarchy"
	KindHeatMap        Kind = "heatmap"
	KindConsolidated   Kind = "consolidated"
	KindRateeAverage   Kind = "ratee-average"
	KindSubjectSummary Kind = "subject-summary"
	KindExport         Kind = "consolidated-export"
)

// QuestionRef is a scored question listed in the hierarchy.
type QuestionRef struct {
	Key  string `json:"key"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// CompetencyNode groups the questions of one competency.
type CompetencyNode struct {
	Name      string        `json:"name"`
	Questions []QuestionRef `json:"questions"`
}

// ClusterNode groups the competencies of one cluster.
type ClusterNode struct {
	Name         string           `json:"name"`
	Competencies []CompetencyNode `json:"competencies"`
}

// Hierarchy lists clusters and competencies alphabetically, questions in schema order.
type Hierarchy struct {
	SurveyID string        `json:"surveyId"`
	Clusters []ClusterNode `json:"clusters"`
}

// Len returns the number of questions listed.
func (h *Hierarchy) Len() int {
	n := 0
	for _, c := range h.Clusters {
		for _, comp := range c.Competencies {
			n += len(comp.Questions)
		}
	}
	return n
}

// HeatMapRow is the completion grid of one subject. Cells follow the
// HeatMap.Relationships column order.
type HeatMapRow struct {
	Subject model.Subject            `json:"subject"`
	Cells   []score.RelationshipStat `json:"cells"`
	Total   score.Stat               `json:"total"`
}

// HeatMap is the per-subject completion grid plus a grand total row.
type HeatMap struct {
	SurveyID      string       `json:"surveyId"`
	Relationships []string     `json:"relationships"`
	Rows          []HeatMapRow `json:"rows"`
	Total         HeatMapRow   `json:"total"`
}

// CompetencyScore is a summed competency score of one submission.
type CompetencyScore struct {
	score.CompetencyKey
	Score float64 `json:"score"`
}

// ConsolidatedRow is one completed submission with summed scores and verbatim texts.
type ConsolidatedRow struct {
	AssignmentID       string             `json:"assignmentId"`
	SubmissionID       string             `json:"submissionId"`
	Subject            model.Subject      `json:"subject"`
	Evaluator          model.Evaluator    `json:"evaluator"`
	Relationship       string             `json:"relationship"`
	StatedRelationship string             `json:"statedRelationship"`
	SubmittedAt        *time.Time         `json:"submittedAt,omitempty"`
	Questions          map[string]float64 `json:"questions"`
	Competencies       []CompetencyScore  `json:"competencies"`
	Clusters           map[string]float64 `json:"clusters"`
	Texts              map[string]string  `json:"texts"`
}

// Consolidated is the flat export of every completed submission.
type Consolidated struct {
	SurveyID string            `json:"surveyId"`
	Rows     []ConsolidatedRow `json:"rows"`
}

// RateeRow is the self versus others table of one subject.
type RateeRow struct {
	Subject      model.Subject           `json:"subject"`
	Completed    int                     `json:"completed"`
	Competencies []score.CompetencySplit `json:"competencies"`
}

// RateeAverage has one row per assigned subject, with or without submissions.
type RateeAverage struct {
	SurveyID     string                `json:"surveyId"`
	Competencies []score.CompetencyKey `json:"competencies"`
	Rows         []RateeRow            `json:"rows"`
}

// SubjectSummary combines every aggregation for a single subject.
type SubjectSummary struct {
	SurveyID     string                   `json:"surveyId"`
	Subject      model.Subject            `json:"subject"`
	Completion   []score.RelationshipStat `json:"completion"`
	Total        score.Stat               `json:"total"`
	Competencies []score.CompetencySplit  `json:"competencies"`
	High         []score.RankedQuestion   `json:"high"`
	Low          []score.RankedQuestion   `json:"low"`
	Strengths    []score.GapRow           `json:"strengths"`
	Blindspots   []score.GapRow           `json:"blindspots"`
}

// Len returns the number of subject rows.
func (h *HeatMap) Len() int { return len(h.Rows) }

// Len returns the number of submission rows.
func (c *Consolidated) Len() int { return len(c.Rows) }

// Len returns the number of subject rows.
func (r *RateeAverage) Len() int { return len(r.Rows) }

// Len returns the number of competency rows.
func (s *SubjectSummary) Len() int { return len(s.Competencies) }
