package score

import (
	"sort"

	"panorama/internal/schema"
)

// HighLow averages every question over the non-self submissions and splits the
// result at opts.Threshold. High scores are sorted descending, low scores
// ascending, ties in schema order. The split uses the unrounded average; only the
// reported Average is rounded.
func HighLow(subs []ScoredSubmission, qm *schema.QuestionMap, opts Options) (high, low []RankedQuestion) {
	_, others := Partition(subs)

	high, low = []RankedQuestion{}, []RankedQuestion{}
	for _, q := range qm.Questions() {
		var m mean
		for _, s := range others {
			if v, found := s.Score(q.Key); found {
				m.add(v)
			}
		}
		avg, ok := m.value()
		if !ok {
			continue
		}
		row := RankedQuestion{
			Key:        q.Key,
			Text:       q.Text,
			Cluster:    q.Cluster,
			Competency: q.Competency,
			Average:    Round2(avg),
			Responses:  m.n,
		}
		if avg >= opts.Threshold {
			high = append(high, row)
		} else {
			low = append(low, row)
		}
	}

	sort.SliceStable(high, func(i, j int) bool { return high[i].Average > high[j].Average })
	sort.SliceStable(low, func(i, j int) bool { return low[i].Average < low[j].Average })
	return rankQuestions(high, opts.limit()), rankQuestions(low, opts.limit())
}

func rankQuestions(rows []RankedQuestion, limit int) []RankedQuestion {
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// Gaps compares others' average with the self score per question. It needs exactly
// one self submission and at least one other; otherwise both lists are empty.
// Positive gaps are latent strengths (largest first), negative gaps blindspots
// (most negative first); zero gaps are in neither list.
func Gaps(subs []ScoredSubmission, qm *schema.QuestionMap, opts Options) (strengths, blindspots []GapRow) {
	strengths, blindspots = []GapRow{}, []GapRow{}

	self, others := Partition(subs)
	if len(self) != 1 || len(others) == 0 {
		return strengths, blindspots
	}

	for _, q := range qm.Questions() {
		selfScore, found := self[0].Score(q.Key)
		if !found {
			continue
		}
		var m mean
		for _, s := range others {
			if v, found := s.Score(q.Key); found {
				m.add(v)
			}
		}
		othersAvg, ok := m.value()
		if !ok {
			continue
		}

		row := GapRow{
			Key:        q.Key,
			Text:       q.Text,
			Cluster:    q.Cluster,
			Competency: q.Competency,
			Self:       selfScore,
			Others:     Round2(othersAvg),
			Gap:        Round2(othersAvg - selfScore),
		}
		switch {
		case row.Gap > 0:
			strengths = append(strengths, row)
		case row.Gap < 0:
			blindspots = append(blindspots, row)
		}
	}

	sort.SliceStable(strengths, func(i, j int) bool { return strengths[i].Gap > strengths[j].Gap })
	sort.SliceStable(blindspots, func(i, j int) bool { return blindspots[i].Gap < blindspots[j].Gap })
	return rankGaps(strengths, opts.limit()), rankGaps(blindspots, opts.limit())
}

func rankGaps(rows []GapRow, limit int) []GapRow {
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
