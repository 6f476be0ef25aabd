package score

import (
	"sort"

	"panorama/internal/model"
	"panorama/internal/schema"
)

// Competencies lists the competencies of scored questions, ordered by cluster
// then competency name.
func Competencies(qm *schema.QuestionMap) []CompetencyKey {
	seen := make(map[CompetencyKey]bool)
	var keys []CompetencyKey
	for _, q := range qm.Questions() {
		if !q.Scored() {
			continue
		}
		key := CompetencyKey{Cluster: q.Cluster, Competency: q.Competency}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].Cluster != keys[j].Cluster {
			return keys[i].Cluster < keys[j].Cluster
		}
		return keys[i].Competency < keys[j].Competency
	})
	return keys
}

// SplitSelfOthers averages each competency's valid scores separately for self and
// others submissions. Every competency of qm is returned; an empty partition
// yields a nil average.
func SplitSelfOthers(subs []ScoredSubmission, qm *schema.QuestionMap) []CompetencySplit {
	competencies := Competencies(qm)
	selfMeans := make(map[CompetencyKey]*mean, len(competencies))
	otherMeans := make(map[CompetencyKey]*mean, len(competencies))
	for _, key := range competencies {
		selfMeans[key] = &mean{}
		otherMeans[key] = &mean{}
	}

	for _, s := range subs {
		target := otherMeans
		if s.Self {
			target = selfMeans
		}
		for _, q := range qm.Questions() {
			v, found := s.Score(q.Key)
			if !found {
				continue
			}
			if m, ok := target[CompetencyKey{Cluster: q.Cluster, Competency: q.Competency}]; ok {
				m.add(v)
			}
		}
	}

	splits := make([]CompetencySplit, 0, len(competencies))
	for _, key := range competencies {
		splits = append(splits, CompetencySplit{
			CompetencyKey: key,
			Self:          selfMeans[key].rounded(),
			Others:        otherMeans[key].rounded(),
			SelfCount:     selfMeans[key].n,
			OthersCount:   otherMeans[key].n,
		})
	}
	return splits
}

// CompletionStats groups assignments by canonical relationship. Sent counts active
// assignments, Completed those whose submission is completed.
func CompletionStats(assignments []model.Assignment) []RelationshipStat {
	stats := make(map[string]*Stat)
	for _, a := range assignments {
		if !a.Active {
			continue
		}
		rel := CanonicalRelationship(a)
		s, found := stats[rel]
		if !found {
			s = &Stat{}
			stats[rel] = s
		}
		s.Sent++
		if a.Submission.Completed() {
			s.Completed++
		}
	}

	labels := make([]string, 0, len(stats))
	for rel := range stats {
		labels = append(labels, rel)
	}
	SortRelationships(labels)

	out := make([]RelationshipStat, 0, len(labels))
	for _, rel := range labels {
		out = append(out, RelationshipStat{Relationship: rel, Stat: *stats[rel]})
	}
	return out
}

// SortRelationships orders known relationships first (Self, Manager, Peer,
// Direct Report, Stakeholder, Skipline), then the rest alphabetically.
func SortRelationships(labels []string) {
	rank := func(label string) int {
		for i, known := range knownRelationships {
			if label == known {
				return i
			}
		}
		return len(knownRelationships)
	}
	sort.SliceStable(labels, func(i, j int) bool {
		ri, rj := rank(labels[i]), rank(labels[j])
		if ri != rj {
			return ri < rj
		}
		return labels[i] < labels[j]
	})
}

// Rollup is the sum of a submission's valid scores per competency and cluster.
type Rollup struct {
	Competencies map[CompetencyKey]float64
	Clusters     map[string]float64
}

// Sum adds up valid scores: question into competency into cluster. Matrix rows are
// separate questions, so no score is counted twice.
func Sum(s ScoredSubmission, qm *schema.QuestionMap) Rollup {
	r := Rollup{
		Competencies: make(map[CompetencyKey]float64),
		Clusters:     make(map[string]float64),
	}
	for _, q := range qm.Questions() {
		v, found := s.Score(q.Key)
		if !found {
			continue
		}
		r.Competencies[CompetencyKey{Cluster: q.Cluster, Competency: q.Competency}] += v
	}
	for key, v := range r.Competencies {
		r.Clusters[key.Cluster] += v
	}
	return r
}
