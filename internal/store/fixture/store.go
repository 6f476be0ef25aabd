// Package fixture serves report sources from a YAML file. It backs the demo
// mode and end to end tests.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"panorama/internal/model"
	"panorama/internal/report"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Document is the file layout. Schema and Data accept either a JSON string or
// an inline YAML mapping.
type Document struct {
	Surveys      []SurveyRecord     `yaml:"surveys" validate:"dive"`
	Clusters     []model.Cluster    `yaml:"clusters" validate:"dive"`
	Competencies []model.Competency `yaml:"competencies" validate:"dive"`
	Assignments  []AssignmentRecord `yaml:"assignments" validate:"dive"`
}

// SurveyRecord is a survey of one tenant. Schema is a JSON string or an inline mapping.
type SurveyRecord struct {
	ID       string `yaml:"id" validate:"required"`
	TenantID string `yaml:"tenantId" validate:"required"`
	Title    string `yaml:"title"`
	Schema   any    `yaml:"schema" validate:"required"`
}

// SubmissionRecord holds the answers of one assignment.
type SubmissionRecord struct {
	ID          string       `yaml:"id" validate:"required"`
	Status      model.Status `yaml:"status" validate:"oneof=Pending InProgress Completed"`
	Data        any          `yaml:"data"`
	SubmittedAt *time.Time   `yaml:"submittedAt"`
}

// AssignmentRecord links a subject to an evaluator. Active defaults to true.
type AssignmentRecord struct {
	ID           string            `yaml:"id" validate:"required"`
	TenantID     string            `yaml:"tenantId" validate:"required"`
	SurveyID     string            `yaml:"surveyId" validate:"required"`
	Subject      model.Subject     `yaml:"subject"`
	Evaluator    model.Evaluator   `yaml:"evaluator"`
	Relationship string            `yaml:"relationship"`
	Active       *bool             `yaml:"active"`
	Submission   *SubmissionRecord `yaml:"submission" validate:"omitempty"`
}

type assignmentKey struct {
	tenant, survey string
}

// Store is an immutable in-memory Source.
type Store struct {
	surveys      map[assignmentKey]*model.Survey
	clusters     map[string][]model.Cluster
	competencies map[string][]model.Competency
	assignments  map[assignmentKey][]model.Assignment
}

// LoadFromFile reads and validates a fixture file.
func LoadFromFile(file string) (*Store, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return Load(content)
}

// Load parses and validates fixture content.
func Load(content []byte) (*Store, error) {
	var doc Document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return New(doc)
}

// New indexes a fixture document.
func New(doc Document) (*Store, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}

	s := &Store{
		surveys:      make(map[assignmentKey]*model.Survey),
		clusters:     make(map[string][]model.Cluster),
		competencies: make(map[string][]model.Competency),
		assignments:  make(map[assignmentKey][]model.Assignment),
	}

	for _, r := range doc.Surveys {
		schema, err := rawJSON(r.Schema)
		if err != nil {
			return nil, fmt.Errorf("survey %s: %w", r.ID, err)
		}
		s.surveys[assignmentKey{r.TenantID, r.ID}] = &model.Survey{ID: r.ID, TenantID: r.TenantID, Title: r.Title, Schema: schema}
	}
	for _, c := range doc.Clusters {
		s.clusters[c.TenantID] = append(s.clusters[c.TenantID], c)
	}
	for _, c := range doc.Competencies {
		s.competencies[c.TenantID] = append(s.competencies[c.TenantID], c)
	}
	for _, r := range doc.Assignments {
		a := model.Assignment{
			ID:           r.ID,
			SurveyID:     r.SurveyID,
			Subject:      r.Subject,
			Evaluator:    r.Evaluator,
			Relationship: r.Relationship,
			Active:       r.Active == nil || *r.Active,
		}
		if r.Submission != nil {
			data, err := rawJSON(r.Submission.Data)
			if err != nil {
				return nil, fmt.Errorf("assignment %s: %w", r.ID, err)
			}
			a.Submission = &model.Submission{
				ID:          r.Submission.ID,
				Status:      r.Submission.Status,
				Data:        data,
				SubmittedAt: r.Submission.SubmittedAt,
			}
		}
		key := assignmentKey{r.TenantID, r.SurveyID}
		s.assignments[key] = append(s.assignments[key], a)
	}
	return s, nil
}

// rawJSON keeps strings verbatim and encodes anything else.
func rawJSON(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return json.RawMessage(t), nil
	default:
		return json.Marshal(t)
	}
}

// Survey returns a copy of the survey or report.ErrNotFound.
func (s *Store) Survey(_ context.Context, tenant, survey string) (*model.Survey, error) {
	sv, found := s.surveys[assignmentKey{tenant, survey}]
	if !found {
		return nil, report.ErrNotFound
	}
	copied := *sv
	return &copied, nil
}

func (s *Store) Clusters(_ context.Context, tenant string) ([]model.Cluster, error) {
	return append([]model.Cluster(nil), s.clusters[tenant]...), nil
}

func (s *Store) Competencies(_ context.Context, tenant string) ([]model.Competency, error) {
	return append([]model.Competency(nil), s.competencies[tenant]...), nil
}

// Assignments returns copies of the survey's assignments in file order.
func (s *Store) Assignments(_ context.Context, tenant, survey string) ([]model.Assignment, error) {
	return append([]model.Assignment(nil), s.assignments[assignmentKey{tenant, survey}]...), nil
}
