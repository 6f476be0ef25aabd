package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"panorama/internal/model"
	"panorama/internal/report"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads report sources from PostgreSQL. Survey schemas and submission
// data are jsonb columns.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a connection pool for url. Connections are opened lazily.
func New(ctx context.Context, url string) (*Store, error) {
	if url == "" {
		return nil, errors.New("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS surveys (
	id text not null,
	tenant_id text not null,
	title text not null default '',
	schema jsonb not null,
	primary key (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS clusters (
	id text not null,
	tenant_id text not null,
	name text not null,
	primary key (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS competencies (
	id text not null,
	tenant_id text not null,
	cluster_id text not null,
	name text not null,
	primary key (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS assignments (
	id text primary key,
	tenant_id text not null,
	survey_id text not null,
	subject_id text not null,
	subject_employee_id text not null default '',
	subject_name text not null default '',
	evaluator_id text not null,
	evaluator_employee_id text not null default '',
	evaluator_name text not null default '',
	relationship text not null default '',
	active boolean not null default true
);

CREATE INDEX IF NOT EXISTS assignments_survey_idx ON assignments(tenant_id, survey_id);

CREATE TABLE IF NOT EXISTS submissions (
	id text primary key,
	assignment_id text not null references assignments(id) on delete cascade,
	status text not null,
	data jsonb not null default '{}',
	submitted_at timestamptz
);

CREATE UNIQUE INDEX IF NOT EXISTS submissions_assignment_idx ON submissions(assignment_id);
`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	return tx.Commit(ctx)
}

// Survey returns report.ErrNotFound when the survey does not exist in tenant.
func (s *Store) Survey(ctx context.Context, tenant, survey string) (*model.Survey, error) {
	var sv model.Survey
	var schema []byte
	err := s.pool.QueryRow(ctx, `SELECT id, tenant_id, title, schema FROM surveys WHERE tenant_id=$1 AND id=$2`, tenant, survey).
		Scan(&sv.ID, &sv.TenantID, &sv.Title, &schema)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, report.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sv.Schema = json.RawMessage(schema)
	return &sv, nil
}

func (s *Store) Clusters(ctx context.Context, tenant string) ([]model.Cluster, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, tenant_id, name FROM clusters WHERE tenant_id=$1 ORDER BY name asc`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Cluster
	for rows.Next() {
		var c model.Cluster
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *Store) Competencies(ctx context.Context, tenant string) ([]model.Competency, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, tenant_id, cluster_id, name FROM competencies WHERE tenant_id=$1 ORDER BY name asc`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Competency
	for rows.Next() {
		var c model.Competency
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ClusterID, &c.Name); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// Assignments returns the survey's assignments joined with their submission.
func (s *Store) Assignments(ctx context.Context, tenant, survey string) ([]model.Assignment, error) {
	rows, err := s.pool.Query(ctx, `
SELECT a.id, a.survey_id, a.subject_id, a.subject_employee_id, a.subject_name,
	a.evaluator_id, a.evaluator_employee_id, a.evaluator_name, a.relationship, a.active,
	s.id, s.status, s.data, s.submitted_at
FROM assignments a
LEFT JOIN submissions s ON s.assignment_id = a.id
WHERE a.tenant_id=$1 AND a.survey_id=$2
ORDER BY a.subject_name, a.subject_id, a.id`, tenant, survey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var submissionID, status *string
		var data []byte
		var submittedAt *time.Time
		if err := rows.Scan(
			&a.ID, &a.SurveyID, &a.Subject.ID, &a.Subject.EmployeeID, &a.Subject.Name,
			&a.Evaluator.ID, &a.Evaluator.EmployeeID, &a.Evaluator.Name, &a.Relationship, &a.Active,
			&submissionID, &status, &data, &submittedAt,
		); err != nil {
			return nil, err
		}
		if submissionID != nil {
			a.Submission = &model.Submission{
				ID:          *submissionID,
				Status:      model.Status(*status),
				Data:        json.RawMessage(data),
				SubmittedAt: submittedAt,
			}
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
