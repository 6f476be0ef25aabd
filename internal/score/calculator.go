package score

import (
	"log/slog"
	"strings"

	"panorama/internal/answer"
	"panorama/internal/model"
	"panorama/internal/schema"
)

// Canonical relationship labels.
const (
	RelationshipSelf         = "Self"
	RelationshipManager      = "Manager"
	RelationshipPeer         = "Peer"
	RelationshipDirectReport = "Direct Report"
	RelationshipStakeholder  = "Stakeholder"
	RelationshipSkipline     = "Skipline"
	RelationshipUnspecified  = "Unspecified"
)

var knownRelationships = []string{
	RelationshipSelf,
	RelationshipManager,
	RelationshipPeer,
	RelationshipDirectReport,
	RelationshipStakeholder,
	RelationshipSkipline,
}

// IsSelf reports whether a submission is a self-assessment. Either rule marks it:
// the relationship label is "self" (any case), or evaluator and subject have
// equal, non-empty employee identifiers. Identifiers are compared exactly after
// trimming.
func IsSelf(relationship, evaluatorEmployeeID, subjectEmployeeID string) bool {
	if strings.EqualFold(strings.TrimSpace(relationship), RelationshipSelf) {
		return true
	}
	evaluatorEmployeeID = strings.TrimSpace(evaluatorEmployeeID)
	return evaluatorEmployeeID != "" && evaluatorEmployeeID == strings.TrimSpace(subjectEmployeeID)
}

// IsSelfAssignment applies IsSelf to an assignment.
func IsSelfAssignment(a model.Assignment) bool {
	return IsSelf(a.Relationship, a.Evaluator.EmployeeID, a.Subject.EmployeeID)
}

// CanonicalRelationship normalises a relationship label. Self-assessments are
// always "Self"; known labels match case-insensitively; free text is trimmed.
func CanonicalRelationship(a model.Assignment) string {
	if IsSelfAssignment(a) {
		return RelationshipSelf
	}
	label := strings.Join(strings.Fields(a.Relationship), " ")
	if label == "" {
		return RelationshipUnspecified
	}
	for _, known := range knownRelationships {
		if strings.EqualFold(label, known) {
			return known
		}
	}
	return label
}

// ScoreSubmission resolves every question of qm against the assignment's submission.
// An unreadable response blob yields an empty, still classified, submission.
func ScoreSubmission(qm *schema.QuestionMap, a model.Assignment) ScoredSubmission {
	scored := ScoredSubmission{
		AssignmentID:       a.ID,
		Subject:            a.Subject,
		Evaluator:          a.Evaluator,
		Relationship:       CanonicalRelationship(a),
		StatedRelationship: a.Relationship,
		Self:               IsSelfAssignment(a),
		Scores:             make(map[string]float64),
		Texts:              make(map[string]string),
	}
	if a.Submission == nil {
		return scored
	}
	scored.SubmissionID = a.Submission.ID

	resp, err := answer.Decode(a.Submission.Data)
	if err != nil {
		slog.Warn("Unable to decode submission", "submission", a.Submission.ID, "error", err)
		return scored
	}

	for _, q := range qm.Questions() {
		if !q.Scored() {
			if text, ok := answer.Text(resp, q.Key); ok {
				scored.Texts[q.Key] = text
			}
			continue
		}
		result := answer.Resolve(resp, q.Key, q)
		if !result.Valid() {
			continue
		}
		v, _ := result.Value()
		scored.Scores[q.Key] = v
	}
	return scored
}

// ScoreAssignments scores the completed submissions of active assignments.
func ScoreAssignments(qm *schema.QuestionMap, assignments []model.Assignment) []ScoredSubmission {
	scored := make([]ScoredSubmission, 0, len(assignments))
	for _, a := range assignments {
		if !a.Active || !a.Submission.Completed() {
			continue
		}
		scored = append(scored, ScoreSubmission(qm, a))
	}
	return scored
}

// Partition splits submissions into self and others. Every submission lands in
// exactly one of the two.
func Partition(subs []ScoredSubmission) (self, others []ScoredSubmission) {
	for _, s := range subs {
		if s.Self {
			self = append(self, s)
		} else {
			others = append(others, s)
		}
	}
	return self, others
}
