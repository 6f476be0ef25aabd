package report

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"panorama/internal/model"
	"panorama/internal/score"
	"panorama/internal/score/rule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "acme"

const surveySchema = `{"pages": [{"elements": [
	{"type": "panel", "elements": [
		{"type": "rating", "name": "q1", "title": "Sets direction", "importedFrom": {"competencyId": "vision"},
		 "config": {"ratingOptions": [{"text": "Poor", "score": 1}, {"text": "Good", "score": 3}, {"text": "Excellent", "score": 5}]}},
		{"type": "radiogroup", "name": "q2", "title": "Plans work", "importedFrom": {"competencyId": "planning"},
		 "choices": [{"value": "low", "text": "Low", "score": 1}, {"value": "high", "text": "High", "score": 4}]}
	]},
	{"type": "matrix", "name": "m", "title": "Collaboration", "importedFrom": {"competencyId": "delivery"},
	 "rows": ["Communication", "Teamwork"],
	 "columns": [{"value": 1, "text": "Never"}, {"value": 5, "text": "Always"}]},
	{"type": "rating", "name": "loose", "title": "Uncatalogued"},
	{"type": "comment", "name": "notes", "title": "Anything else?"}
]}]}`

type memSource struct {
	surveys      map[string]*model.Survey
	clusters     []model.Cluster
	competencies []model.Competency
	assignments  []model.Assignment
	err          error
}

func (m *memSource) Survey(_ context.Context, tenant, survey string) (*model.Survey, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, found := m.surveys[survey]
	if !found || s.TenantID != tenant {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *memSource) Clusters(context.Context, string) ([]model.Cluster, error) {
	return m.clusters, nil
}

func (m *memSource) Competencies(context.Context, string) ([]model.Competency, error) {
	return m.competencies, nil
}

func (m *memSource) Assignments(_ context.Context, _ string, survey string) ([]model.Assignment, error) {
	var out []model.Assignment
	for _, a := range m.assignments {
		if a.SurveyID == survey {
			out = append(out, a)
		}
	}
	return out, nil
}

var (
	ada   = model.Subject{ID: "s-ada", EmployeeID: "E1", Name: "Ada"}
	brian = model.Subject{ID: "s-brian", EmployeeID: "E2", Name: "Brian"}
	cleo  = model.Subject{ID: "s-cleo", EmployeeID: "E3", Name: "Cleo"}
)

func assigned(id string, subject model.Subject, relationship, evaluatorEmployee string, status model.Status, data string) model.Assignment {
	a := model.Assignment{
		ID:           id,
		SurveyID:     "360",
		Subject:      subject,
		Evaluator:    model.Evaluator{ID: "ev-" + id, EmployeeID: evaluatorEmployee, Name: "Evaluator " + id},
		Relationship: relationship,
		Active:       true,
	}
	if status != "" {
		submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		a.Submission = &model.Submission{ID: "sub-" + id, Status: status, Data: json.RawMessage(data), SubmittedAt: &submitted}
	}
	return a
}

func newSource() *memSource {
	src := &memSource{
		surveys: map[string]*model.Survey{
			"360": {ID: "360", TenantID: tenant, Title: "Annual 360", Schema: json.RawMessage(surveySchema)},
		},
		clusters: []model.Cluster{
			{ID: "lead", TenantID: tenant, Name: "Leadership"},
			{ID: "exec", TenantID: tenant, Name: "Execution"},
		},
		competencies: []model.Competency{
			{ID: "vision", TenantID: tenant, ClusterID: "lead", Name: "Vision"},
			{ID: "planning", TenantID: tenant, ClusterID: "exec", Name: "Planning"},
			{ID: "delivery", TenantID: tenant, ClusterID: "exec", Name: "Delivery"},
		},
	}

	src.assignments = append(src.assignments,
		assigned("a-self", ada, "Self", "E1", model.StatusCompleted, `{"q1": "Excellent", "q2": "high", "m": {"Communication": 5, "Teamwork": 5}}`),
		assigned("a-mgr", ada, "manager", "M1", model.StatusCompleted, `{"q1": "Good", "q2": "Low", "m": {"Communication": "always"}, "notes": "Keep it up"}`),
	)
	for i := 0; i < 4; i++ {
		status := model.StatusCompleted
		if i == 3 {
			status = model.StatusInProgress
		}
		src.assignments = append(src.assignments,
			assigned(fmt.Sprint("a-peer", i), ada, "Peer", fmt.Sprint("P", i), status, `{"q1": "good", "q2": 4, "m": {"Communication": 1, "Teamwork": "Never"}}`))
	}
	src.assignments = append(src.assignments,
		assigned("b-peer", brian, "Peer", "P1", model.StatusPending, `{}`),
		assigned("b-mentor", brian, "Mentor", "X1", "", ""),
	)
	inactive := assigned("c-peer", cleo, "Peer", "P2", model.StatusCompleted, `{"q1": 5}`)
	inactive.Active = false
	src.assignments = append(src.assignments, inactive)
	return src
}

func newService(t *testing.T, src Source) *Service {
	t.Helper()
	rules, err := rule.Load([]byte(`
- when: "hasSelf && hasOthers && gap <= -1.0"
  then: blind spot
`), rule.NewEnv)
	require.NoError(t, err)
	return NewService(src, score.DefaultOptions(), rules)
}

func TestService_Hierarchy(t *testing.T) {
	h, err := newService(t, newSource()).Hierarchy(context.Background(), tenant, "360")
	require.NoError(t, err)

	require.Len(t, h.Clusters, 3)
	assert.Equal(t, "Execution", h.Clusters[0].Name)
	require.Len(t, h.Clusters[0].Competencies, 2)
	assert.Equal(t, "Delivery", h.Clusters[0].Competencies[0].Name)
	assert.Equal(t, []QuestionRef{
		{Key: "m:Communication", Text: "Communication", Type: "matrix"},
		{Key: "m:Teamwork", Text: "Teamwork", Type: "matrix"},
	}, h.Clusters[0].Competencies[0].Questions)
	assert.Equal(t, "Planning", h.Clusters[0].Competencies[1].Name)
	assert.Equal(t, "Leadership", h.Clusters[1].Name)
	assert.Equal(t, "Uncategorized", h.Clusters[2].Name)
	assert.Equal(t, "General", h.Clusters[2].Competencies[0].Name)
	assert.Equal(t, 5, h.Len(), "text questions are not listed")
}

func TestService_HeatMap(t *testing.T) {
	hm, err := newService(t, newSource()).HeatMap(context.Background(), tenant, "360")
	require.NoError(t, err)

	assert.Equal(t, []string{"Self", "Manager", "Peer", "Mentor"}, hm.Relationships)
	require.Len(t, hm.Rows, 2, "subjects with only inactive assignments have no row")

	row := hm.Rows[0]
	assert.Equal(t, ada, row.Subject)
	require.Len(t, row.Cells, 4)
	assert.Equal(t, score.RelationshipStat{Relationship: "Peer", Stat: score.Stat{Sent: 4, Completed: 3}}, row.Cells[2])
	assert.Equal(t, 1, row.Cells[2].Remaining())
	assert.Equal(t, score.Stat{}, row.Cells[3].Stat)
	assert.Equal(t, score.Stat{Sent: 6, Completed: 5}, row.Total)

	assert.Equal(t, brian, hm.Rows[1].Subject)
	assert.Equal(t, score.Stat{Sent: 2}, hm.Rows[1].Total)

	assert.Equal(t, score.Stat{Sent: 5, Completed: 3}, hm.Total.Cells[2].Stat)
	assert.Equal(t, score.Stat{Sent: 8, Completed: 5}, hm.Total.Total)
}

func TestService_Consolidated(t *testing.T) {
	c, err := newService(t, newSource()).Consolidated(context.Background(), tenant, "360")
	require.NoError(t, err)
	require.Len(t, c.Rows, 5)

	mgr := c.Rows[1]
	assert.Equal(t, "a-mgr", mgr.AssignmentID)
	assert.Equal(t, "Manager", mgr.Relationship)
	assert.Equal(t, "manager", mgr.StatedRelationship)
	assert.Equal(t, map[string]float64{"q1": 3, "q2": 1, "m:Communication": 5}, mgr.Questions)
	assert.Equal(t, map[string]string{"notes": "Keep it up"}, mgr.Texts)
	assert.Equal(t, map[string]float64{"Execution": 6, "Leadership": 3}, mgr.Clusters)
	require.NotNil(t, mgr.SubmittedAt)

	for _, row := range c.Rows {
		var questions, competencies, clusters float64
		for _, v := range row.Questions {
			questions += v
		}
		for _, cs := range row.Competencies {
			competencies += cs.Score
		}
		for _, v := range row.Clusters {
			clusters += v
		}
		assert.Equal(t, questions, competencies, row.AssignmentID)
		assert.Equal(t, competencies, clusters, row.AssignmentID)
	}
}

func TestService_RateeAverage(t *testing.T) {
	ra, err := newService(t, newSource()).RateeAverage(context.Background(), tenant, "360")
	require.NoError(t, err)

	assert.Len(t, ra.Competencies, 4)
	require.Len(t, ra.Rows, 2)

	adaRow := ra.Rows[0]
	assert.Equal(t, 5, adaRow.Completed)
	delivery := adaRow.Competencies[0]
	assert.Equal(t, "Delivery", delivery.Competency)
	require.NotNil(t, delivery.Self)
	assert.Equal(t, 5.0, *delivery.Self)
	require.NotNil(t, delivery.Others)
	// Manager 5, peers 1,1 x3: (5 + 6*1) / 7
	assert.Equal(t, 1.57, *delivery.Others)
	assert.Equal(t, []string{"blind spot"}, delivery.Insights)

	general := adaRow.Competencies[3]
	assert.Equal(t, "General", general.Competency)
	assert.Nil(t, general.Self)
	assert.Nil(t, general.Others)

	brianRow := ra.Rows[1]
	assert.Equal(t, brian, brianRow.Subject)
	assert.Zero(t, brianRow.Completed)
	for _, split := range brianRow.Competencies {
		assert.Nil(t, split.Self)
		assert.Nil(t, split.Others)
	}
}

func TestService_SubjectSummary(t *testing.T) {
	summary, err := newService(t, newSource()).SubjectSummary(context.Background(), tenant, "360", ada.ID)
	require.NoError(t, err)

	assert.Equal(t, ada, summary.Subject)
	assert.Equal(t, score.Stat{Sent: 6, Completed: 5}, summary.Total)
	require.Len(t, summary.Completion, 3)
	assert.Equal(t, "Self", summary.Completion[0].Relationship)

	require.NotEmpty(t, summary.High)
	assert.Equal(t, "q2", summary.High[0].Key, "manager 1 and peers 4 average 3.25")
	assert.Equal(t, 3.25, summary.High[0].Average)

	require.NotEmpty(t, summary.Blindspots)
	assert.Equal(t, "m:Teamwork", summary.Blindspots[0].Key)
	assert.Equal(t, -4.0, summary.Blindspots[0].Gap)
	assert.Equal(t, 1, summary.Blindspots[0].Rank)
}

func TestService_MissingEntitiesAreEmpty(t *testing.T) {
	svc := newService(t, newSource())
	ctx := context.Background()

	h, err := svc.Hierarchy(ctx, tenant, "unknown")
	require.NoError(t, err)
	assert.Empty(t, h.Clusters)

	hm, err := svc.HeatMap(ctx, "other-tenant", "360")
	require.NoError(t, err)
	assert.Empty(t, hm.Rows)

	summary, err := svc.SubjectSummary(ctx, tenant, "360", "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", summary.Subject.ID)
	assert.NotNil(t, summary.High)
	assert.Empty(t, summary.Completion)

	encoded, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"strengths":[]`)
}

func TestService_SourceError(t *testing.T) {
	src := newSource()
	src.err = assert.AnError
	_, err := newService(t, src).RateeAverage(context.Background(), tenant, "360")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestService_MalformedSchemaIsEmpty(t *testing.T) {
	src := newSource()
	src.surveys["360"].Schema = json.RawMessage(`{"title": "no pages"}`)

	ra, err := newService(t, src).RateeAverage(context.Background(), tenant, "360")
	require.NoError(t, err)
	assert.Empty(t, ra.Competencies)
	require.Len(t, ra.Rows, 2)
	assert.Empty(t, ra.Rows[0].Competencies)
}
