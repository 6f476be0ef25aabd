package report

import (
	"context"
	"errors"

	"panorama/internal/model"
)

// ErrNotFound is returned by a Source when the requested entity does not exist
// for the tenant.
var ErrNotFound = errors.New("not found")

// Source provides the persisted records a report is built from. Every call is
// tenant scoped.
type Source interface {
	Survey(ctx context.Context, tenant, survey string) (*model.Survey, error)
	Clusters(ctx context.Context, tenant string) ([]model.Cluster, error)
	Competencies(ctx context.Context, tenant string) ([]model.Competency, error)
	// Assignments returns every assignment of the survey with its latest submission.
	Assignments(ctx context.Context, tenant, survey string) ([]model.Assignment, error)
}
