package model

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a survey submission.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
)

// Survey is a tenant-scoped survey definition. Schema holds the raw SurveyJS document.
type Survey struct {
	ID       string          `json:"id" yaml:"id" db:"id" validate:"required"`
	TenantID string          `json:"tenantId" yaml:"tenantId" db:"tenant_id" validate:"required"`
	Title    string          `json:"title" yaml:"title" db:"title"`
	Schema   json.RawMessage `json:"schema" yaml:"-" db:"schema"`
}

// Cluster is the top level of the competency catalog.
type Cluster struct {
	ID       string `json:"id" yaml:"id" db:"id" validate:"required"`
	TenantID string `json:"tenantId" yaml:"tenantId" db:"tenant_id"`
	Name     string `json:"name" yaml:"name" db:"name" validate:"required"`
}

// Competency belongs to exactly one cluster.
type Competency struct {
	ID        string `json:"id" yaml:"id" db:"id" validate:"required"`
	TenantID  string `json:"tenantId" yaml:"tenantId" db:"tenant_id"`
	ClusterID string `json:"clusterId" yaml:"clusterId" db:"cluster_id"`
	Name      string `json:"name" yaml:"name" db:"name" validate:"required"`
}

// Subject is the person being evaluated in a feedback cycle.
type Subject struct {
	ID         string `json:"id" yaml:"id" db:"subject_id" validate:"required"`
	EmployeeID string `json:"employeeId" yaml:"employeeId" db:"subject_employee_id"`
	Name       string `json:"name" yaml:"name" db:"subject_name"`
}

// Evaluator is the person giving feedback about a subject.
type Evaluator struct {
	ID         string `json:"id" yaml:"id" db:"evaluator_id" validate:"required"`
	EmployeeID string `json:"employeeId" yaml:"employeeId" db:"evaluator_employee_id"`
	Name       string `json:"name" yaml:"name" db:"evaluator_name"`
}

// Submission is the response of one evaluator for one assignment.
type Submission struct {
	ID          string          `json:"id" yaml:"id"`
	Status      Status          `json:"status" yaml:"status"`
	Data        json.RawMessage `json:"data" yaml:"-"`
	SubmittedAt *time.Time      `json:"submittedAt,omitempty" yaml:"submittedAt,omitempty"`
}

// Completed reports whether the submission counts towards completion and scoring.
func (s *Submission) Completed() bool {
	return s != nil && s.Status == StatusCompleted
}

// Assignment links a subject and an evaluator within one survey.
// Submission is nil while the evaluator has not started.
type Assignment struct {
	ID           string      `json:"id" yaml:"id"`
	SurveyID     string      `json:"surveyId" yaml:"surveyId"`
	Subject      Subject     `json:"subject" yaml:"subject"`
	Evaluator    Evaluator   `json:"evaluator" yaml:"evaluator"`
	Relationship string      `json:"relationship" yaml:"relationship"`
	Active       bool        `json:"active" yaml:"active"`
	Submission   *Submission `json:"submission,omitempty" yaml:"submission,omitempty"`
}
