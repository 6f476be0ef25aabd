package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"panorama/internal/model"
	"panorama/internal/report"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Store reads report sources from MySQL. Survey schemas and submission data
// are JSON columns.
type Store struct {
	db *sqlx.DB
}

// New opens a connection pool. The DSN must enable parseTime.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.db.Close()
}

var tables = []string{`
CREATE TABLE IF NOT EXISTS surveys (
	id VARCHAR(64) NOT NULL,
	tenant_id VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL DEFAULT '',
	` + "`schema`" + ` JSON NOT NULL,
	PRIMARY KEY (tenant_id, id)
)`, `
CREATE TABLE IF NOT EXISTS clusters (
	id VARCHAR(64) NOT NULL,
	tenant_id VARCHAR(64) NOT NULL,
	name VARCHAR(255) NOT NULL,
	PRIMARY KEY (tenant_id, id)
)`, `
CREATE TABLE IF NOT EXISTS competencies (
	id VARCHAR(64) NOT NULL,
	tenant_id VARCHAR(64) NOT NULL,
	cluster_id VARCHAR(64) NOT NULL,
	name VARCHAR(255) NOT NULL,
	PRIMARY KEY (tenant_id, id)
)`, `
CREATE TABLE IF NOT EXISTS assignments (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	tenant_id VARCHAR(64) NOT NULL,
	survey_id VARCHAR(64) NOT NULL,
	subject_id VARCHAR(64) NOT NULL,
	subject_employee_id VARCHAR(64) NOT NULL DEFAULT '',
	subject_name VARCHAR(255) NOT NULL DEFAULT '',
	evaluator_id VARCHAR(64) NOT NULL,
	evaluator_employee_id VARCHAR(64) NOT NULL DEFAULT '',
	evaluator_name VARCHAR(255) NOT NULL DEFAULT '',
	relationship VARCHAR(64) NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	INDEX idx_survey (tenant_id, survey_id)
)`, `
CREATE TABLE IF NOT EXISTS submissions (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	assignment_id VARCHAR(64) NOT NULL,
	status VARCHAR(16) NOT NULL,
	data JSON NOT NULL,
	submitted_at DATETIME NULL,
	UNIQUE KEY unique_assignment (assignment_id)
)`}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, query := range tables {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

type surveyRow struct {
	model.Survey
	RawSchema []byte `db:"raw_schema"`
}

// Survey returns report.ErrNotFound when the survey does not exist in tenant.
func (s *Store) Survey(ctx context.Context, tenant, survey string) (*model.Survey, error) {
	var row surveyRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, tenant_id, title, `schema` AS raw_schema FROM surveys WHERE tenant_id=? AND id=?", tenant, survey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, report.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sv := row.Survey
	sv.Schema = json.RawMessage(row.RawSchema)
	return &sv, nil
}

// Clusters returns the tenant's competency clusters.
func (s *Store) Clusters(ctx context.Context, tenant string) ([]model.Cluster, error) {
	var res []model.Cluster
	err := s.db.SelectContext(ctx, &res, `SELECT id, tenant_id, name FROM clusters WHERE tenant_id=? ORDER BY name`, tenant)
	return res, err
}

func (s *Store) Competencies(ctx context.Context, tenant string) ([]model.Competency, error) {
	var res []model.Competency
	err := s.db.SelectContext(ctx, &res, `SELECT id, tenant_id, cluster_id, name FROM competencies WHERE tenant_id=? ORDER BY name`, tenant)
	return res, err
}

// assignmentRow is the flat join of an assignment and its optional submission.
type assignmentRow struct {
	ID                  string         `db:"id"`
	SurveyID            string         `db:"survey_id"`
	SubjectID           string         `db:"subject_id"`
	SubjectEmployeeID   string         `db:"subject_employee_id"`
	SubjectName         string         `db:"subject_name"`
	EvaluatorID         string         `db:"evaluator_id"`
	EvaluatorEmployeeID string         `db:"evaluator_employee_id"`
	EvaluatorName       string         `db:"evaluator_name"`
	Relationship        string         `db:"relationship"`
	Active              bool           `db:"active"`
	SubmissionID        sql.NullString `db:"submission_id"`
	Status              sql.NullString `db:"status"`
	Data                []byte         `db:"data"`
	SubmittedAt         sql.NullTime   `db:"submitted_at"`
}

func (r assignmentRow) assignment() model.Assignment {
	a := model.Assignment{
		ID:           r.ID,
		SurveyID:     r.SurveyID,
		Subject:      model.Subject{ID: r.SubjectID, EmployeeID: r.SubjectEmployeeID, Name: r.SubjectName},
		Evaluator:    model.Evaluator{ID: r.EvaluatorID, EmployeeID: r.EvaluatorEmployeeID, Name: r.EvaluatorName},
		Relationship: r.Relationship,
		Active:       r.Active,
	}
	if r.SubmissionID.Valid {
		a.Submission = &model.Submission{
			ID:     r.SubmissionID.String,
			Status: model.Status(r.Status.String),
			Data:   json.RawMessage(r.Data),
		}
		if r.SubmittedAt.Valid {
			at := r.SubmittedAt.Time
			a.Submission.SubmittedAt = &at
		}
	}
	return a
}

// Assignments returns the survey's assignments joined with their submission.
func (s *Store) Assignments(ctx context.Context, tenant, survey string) ([]model.Assignment, error) {
	var rows []assignmentRow
	err := s.db.SelectContext(ctx, &rows, `
SELECT a.id, a.survey_id, a.subject_id, a.subject_employee_id, a.subject_name,
	a.evaluator_id, a.evaluator_employee_id, a.evaluator_name, a.relationship, a.active,
	s.id AS submission_id, s.status, s.data, s.submitted_at
FROM assignments a
LEFT JOIN submissions s ON s.assignment_id = a.id
WHERE a.tenant_id=? AND a.survey_id=?
ORDER BY a.subject_name, a.subject_id, a.id`, tenant, survey)
	if err != nil {
		return nil, err
	}

	res := make([]model.Assignment, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.assignment())
	}
	return res, nil
}
