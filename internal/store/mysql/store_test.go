package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"panorama/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentRow_WithSubmission(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	row := assignmentRow{
		ID:                  "a1",
		SurveyID:            "s1",
		SubjectID:           "sub",
		SubjectEmployeeID:   "E1",
		SubjectName:         "Ada",
		EvaluatorID:         "ev",
		EvaluatorEmployeeID: "E2",
		Relationship:        "Peer",
		Active:              true,
		SubmissionID:        sql.NullString{String: "x1", Valid: true},
		Status:              sql.NullString{String: "Completed", Valid: true},
		Data:                []byte(`{"q1": 4}`),
		SubmittedAt:         sql.NullTime{Time: at, Valid: true},
	}

	a := row.assignment()
	assert.Equal(t, model.Subject{ID: "sub", EmployeeID: "E1", Name: "Ada"}, a.Subject)
	assert.Equal(t, "E2", a.Evaluator.EmployeeID)
	require.NotNil(t, a.Submission)
	assert.True(t, a.Submission.Completed())
	assert.JSONEq(t, `{"q1": 4}`, string(a.Submission.Data))
	require.NotNil(t, a.Submission.SubmittedAt)
	assert.Equal(t, at, *a.Submission.SubmittedAt)
}

func TestAssignmentRow_WithoutSubmission(t *testing.T) {
	a := assignmentRow{ID: "a1", Relationship: "Self"}.assignment()
	assert.Nil(t, a.Submission)
	assert.False(t, a.Submission.Completed())
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)

	_, err = New(context.Background(), "not a dsn")
	assert.ErrorContains(t, err, "open mysql")
}
