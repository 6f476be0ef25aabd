package report

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"panorama/internal/model"
	"panorama/internal/schema"
	"panorama/internal/score"
	"panorama/internal/score/rule"
)

// Service assembles reports from a Source. It holds no per-request state: the
// question map and scored submissions are rebuilt on every call.
type Service struct {
	source Source
	opts   score.Options
	rules  rule.Set
}

// NewService creates a report service. rules may be empty.
func NewService(source Source, opts score.Options, rules rule.Set) *Service {
	return &Service{source: source, opts: opts, rules: rules}
}

// surveyData is everything one report call reads from the source.
type surveyData struct {
	survey      *model.Survey
	questions   *schema.QuestionMap
	assignments []model.Assignment
}

// load reads the survey, the catalogs and the assignments. A missing survey
// returns nil data and no error.
func (s *Service) load(ctx context.Context, tenant, surveyID string) (*surveyData, error) {
	survey, err := s.source.Survey(ctx, tenant, surveyID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load survey %s: %w", surveyID, err)
	}

	clusters, err := s.source.Clusters(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("load clusters: %w", err)
	}
	competencies, err := s.source.Competencies(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("load competencies: %w", err)
	}
	assignments, err := s.source.Assignments(ctx, tenant, surveyID)
	if errors.Is(err, ErrNotFound) {
		assignments = nil
	} else if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}

	return &surveyData{
		survey:      survey,
		questions:   schema.BuildQuestionMap(survey.Schema, schema.NewCatalog(clusters, competencies)),
		assignments: assignments,
	}, nil
}

// Hierarchy lists the scored questions of a survey grouped by cluster and competency.
func (s *Service) Hierarchy(ctx context.Context, tenant, surveyID string) (*Hierarchy, error) {
	h := &Hierarchy{SurveyID: surveyID, Clusters: []ClusterNode{}}
	data, err := s.load(ctx, tenant, surveyID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return h, nil
	}

	clusters := make(map[string]map[string][]QuestionRef)
	for _, q := range data.questions.Questions() {
		if !q.Scored() {
			continue
		}
		competencies, found := clusters[q.Cluster]
		if !found {
			competencies = make(map[string][]QuestionRef)
			clusters[q.Cluster] = competencies
		}
		competencies[q.Competency] = append(competencies[q.Competency], QuestionRef{Key: q.Key, Text: q.Text, Type: q.Type})
	}

	for _, clusterName := range sortedKeys(clusters) {
		node := ClusterNode{Name: clusterName}
		for _, competencyName := range sortedKeys(clusters[clusterName]) {
			node.Competencies = append(node.Competencies, CompetencyNode{
				Name:      competencyName,
				Questions: clusters[clusterName][competencyName],
			})
		}
		h.Clusters = append(h.Clusters, node)
	}
	return h, nil
}

// HeatMap builds the relationship completion grid of every subject with active
// assignments, plus a grand total row.
func (s *Service) HeatMap(ctx context.Context, tenant, surveyID string) (*HeatMap, error) {
	hm := &HeatMap{SurveyID: surveyID, Relationships: []string{}, Rows: []HeatMapRow{}}
	hm.Total.Cells = []score.RelationshipStat{}
	data, err := s.load(ctx, tenant, surveyID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return hm, nil
	}

	columns := make(map[string]bool)
	bySubject := groupBySubject(data.assignments)
	stats := make([]map[string]score.Stat, len(bySubject))
	for i, group := range bySubject {
		stats[i] = make(map[string]score.Stat)
		for _, rs := range score.CompletionStats(group.assignments) {
			stats[i][rs.Relationship] = rs.Stat
			columns[rs.Relationship] = true
		}
	}
	hm.Relationships = sortedRelationships(columns)

	totals := make(map[string]score.Stat)
	for i, group := range bySubject {
		if len(stats[i]) == 0 {
			continue
		}
		row := HeatMapRow{Subject: group.subject, Cells: make([]score.RelationshipStat, 0, len(hm.Relationships))}
		for _, rel := range hm.Relationships {
			cell := stats[i][rel]
			row.Cells = append(row.Cells, score.RelationshipStat{Relationship: rel, Stat: cell})
			row.Total.Add(cell)

			total := totals[rel]
			total.Add(cell)
			totals[rel] = total
		}
		hm.Rows = append(hm.Rows, row)
	}

	for _, rel := range hm.Relationships {
		hm.Total.Cells = append(hm.Total.Cells, score.RelationshipStat{Relationship: rel, Stat: totals[rel]})
		hm.Total.Total.Add(totals[rel])
	}
	return hm, nil
}

// Consolidated flattens every completed submission into question scores and
// competency and cluster sums, keeping free text verbatim.
func (s *Service) Consolidated(ctx context.Context, tenant, surveyID string) (*Consolidated, error) {
	c := &Consolidated{SurveyID: surveyID, Rows: []ConsolidatedRow{}}
	data, err := s.load(ctx, tenant, surveyID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return c, nil
	}

	competencies := score.Competencies(data.questions)
	for _, a := range data.assignments {
		if !a.Active || !a.Submission.Completed() {
			continue
		}
		scored := score.ScoreSubmission(data.questions, a)
		rollup := score.Sum(scored, data.questions)

		row := ConsolidatedRow{
			AssignmentID:       scored.AssignmentID,
			SubmissionID:       scored.SubmissionID,
			Subject:            scored.Subject,
			Evaluator:          scored.Evaluator,
			Relationship:       scored.Relationship,
			StatedRelationship: scored.StatedRelationship,
			SubmittedAt:        a.Submission.SubmittedAt,
			Questions:          scored.Scores,
			Competencies:       make([]CompetencyScore, 0, len(competencies)),
			Clusters:           rollup.Clusters,
			Texts:              scored.Texts,
		}
		for _, key := range competencies {
			row.Competencies = append(row.Competencies, CompetencyScore{CompetencyKey: key, Score: rollup.Competencies[key]})
		}
		c.Rows = append(c.Rows, row)
	}
	return c, nil
}

// RateeAverage compares self and others averages per competency for every
// subject with an active assignment. Subjects without completed submissions
// still get a row, with null averages.
func (s *Service) RateeAverage(ctx context.Context, tenant, surveyID string) (*RateeAverage, error) {
	ra := &RateeAverage{SurveyID: surveyID, Competencies: []score.CompetencyKey{}, Rows: []RateeRow{}}
	data, err := s.load(ctx, tenant, surveyID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return ra, nil
	}

	if keys := score.Competencies(data.questions); keys != nil {
		ra.Competencies = keys
	}
	for _, group := range groupBySubject(data.assignments) {
		if !hasActive(group.assignments) {
			continue
		}
		subs := score.ScoreAssignments(data.questions, group.assignments)
		splits := score.SplitSelfOthers(subs, data.questions)
		s.rules.Apply(splits)
		ra.Rows = append(ra.Rows, RateeRow{
			Subject:      group.subject,
			Completed:    len(subs),
			Competencies: splits,
		})
	}
	return ra, nil
}

// SubjectSummary combines completion, the competency split, high and low scores
// and gap analysis for one subject.
func (s *Service) SubjectSummary(ctx context.Context, tenant, surveyID, subjectID string) (*SubjectSummary, error) {
	summary := &SubjectSummary{
		SurveyID:     surveyID,
		Subject:      model.Subject{ID: subjectID},
		Completion:   []score.RelationshipStat{},
		Competencies: []score.CompetencySplit{},
		High:         []score.RankedQuestion{},
		Low:          []score.RankedQuestion{},
		Strengths:    []score.GapRow{},
		Blindspots:   []score.GapRow{},
	}
	data, err := s.load(ctx, tenant, surveyID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return summary, nil
	}

	var assignments []model.Assignment
	for _, a := range data.assignments {
		if a.Subject.ID == subjectID {
			assignments = append(assignments, a)
		}
	}
	if len(assignments) == 0 {
		return summary, nil
	}
	summary.Subject = assignments[0].Subject

	summary.Completion = score.CompletionStats(assignments)
	for _, rs := range summary.Completion {
		summary.Total.Add(rs.Stat)
	}

	subs := score.ScoreAssignments(data.questions, assignments)
	summary.Competencies = score.SplitSelfOthers(subs, data.questions)
	s.rules.Apply(summary.Competencies)
	summary.High, summary.Low = score.HighLow(subs, data.questions, s.opts)
	summary.Strengths, summary.Blindspots = score.Gaps(subs, data.questions, s.opts)
	return summary, nil
}

type subjectGroup struct {
	subject     model.Subject
	assignments []model.Assignment
}

// groupBySubject groups assignments per subject ordered by name, then ID.
func groupBySubject(assignments []model.Assignment) []subjectGroup {
	index := make(map[string]int)
	var groups []subjectGroup
	for _, a := range assignments {
		i, found := index[a.Subject.ID]
		if !found {
			i = len(groups)
			index[a.Subject.ID] = i
			groups = append(groups, subjectGroup{subject: a.Subject})
		}
		groups[i].assignments = append(groups[i].assignments, a)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].subject.Name != groups[j].subject.Name {
			return groups[i].subject.Name < groups[j].subject.Name
		}
		return groups[i].subject.ID < groups[j].subject.ID
	})
	return groups
}

func hasActive(assignments []model.Assignment) bool {
	for _, a := range assignments {
		if a.Active {
			return true
		}
	}
	return false
}

func sortedRelationships(set map[string]bool) []string {
	labels := make([]string, 0, len(set))
	for rel := range set {
		labels = append(labels, rel)
	}
	score.SortRelationships(labels)
	return labels
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
