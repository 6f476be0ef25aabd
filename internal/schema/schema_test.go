package schema

import (
	"testing"

	"panorama/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = NewCatalog(
	[]model.Cluster{{ID: "c1", Name: "Leadership"}, {ID: "c2", Name: "Execution"}},
	[]model.Competency{
		{ID: "k1", ClusterID: "c1", Name: "Vision"},
		{ID: "k2", ClusterID: "c2", Name: "Delivery"},
		{ID: "k3", Name: "Orphan"},
	},
)

func TestOptionScores_CaseInsensitive(t *testing.T) {
	options := NewOptionScores(map[string]int{"Satisfied": 4})

	upper, found := options.Lookup("SATISFIED")
	require.True(t, found)
	lower, found := options.Lookup("satisfied")
	require.True(t, found)
	assert.Equal(t, upper, lower)
	assert.Equal(t, 4, lower)

	_, found = options.Lookup("unknown")
	assert.False(t, found)
}

func TestOptionScores_ZeroValue(t *testing.T) {
	var options OptionScores
	_, found := options.Lookup("anything")
	assert.False(t, found)
	assert.Equal(t, 0, options.Len())
}

func TestParse_MissingPages(t *testing.T) {
	_, err := Parse([]byte(`{"title": "no pages"}`))
	assert.ErrorIs(t, err, ErrNoPages)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"pages": [`))
	assert.Error(t, err)
}

func TestBuildQuestionMap_MalformedIsEmpty(t *testing.T) {
	qm := BuildQuestionMap([]byte(`not json`), testCatalog)
	require.NotNil(t, qm)
	assert.Equal(t, 0, qm.Len())

	qm = BuildQuestionMap([]byte(`{"pages": "oops"}`), testCatalog)
	assert.Equal(t, 0, qm.Len())
}

func TestBuildQuestionMap_RatingTextPreference(t *testing.T) {
	const doc = `{"pages": [{"elements": [
		{"type": "rating", "name": "q1", "title": "Title", "selfText": "Self", "othersText": "Others"},
		{"type": "rating", "name": "q2", "title": "Title", "selfText": "Self"},
		{"type": "rating", "name": "q3", "title": {"default": "Localized", "fr": "Localisé"}},
		{"type": "rating", "name": "q4"},
		{"type": "rating", "id": "q5"}
	]}]}`
	qm := BuildQuestionMap([]byte(doc), testCatalog)
	require.Equal(t, 5, qm.Len())

	expected := map[string]string{"q1": "Others", "q2": "Self", "q3": "Localized", "q4": "q4", "q5": "q5"}
	for key, text := range expected {
		q, found := qm.Get(key)
		require.True(t, found, key)
		assert.Equal(t, text, q.Text, key)
	}
}

func TestBuildQuestionMap_Defaults(t *testing.T) {
	const doc = `{"pages": [{"elements": [{"type": "radiogroup", "name": "q1"}]}]}`
	q, found := BuildQuestionMap([]byte(doc), testCatalog).Get("q1")
	require.True(t, found)
	assert.Equal(t, DefaultCluster, q.Cluster)
	assert.Equal(t, DefaultCompetency, q.Competency)
	assert.Equal(t, 1, q.RateMin)
	assert.Equal(t, 5, q.RateMax)
	assert.True(t, q.Scored())
}

func TestBuildQuestionMap_ImportedFrom(t *testing.T) {
	const doc = `{"pages": [{"elements": [
		{"type": "rating", "name": "q1", "importedFrom": {"competencyId": "k1"}},
		{"type": "rating", "name": "q2", "importedFrom": {"clusterId": "c2"}},
		{"type": "rating", "name": "q3", "importedFrom": {"competencyId": "k3", "clusterId": "c1"}},
		{"type": "rating", "name": "q4", "importedFrom": {"competencyId": "missing"}}
	]}]}`
	qm := BuildQuestionMap([]byte(doc), testCatalog)

	cases := []struct{ key, cluster, competency string }{
		{"q1", "Leadership", "Vision"},
		{"q2", "Execution", DefaultCompetency},
		{"q3", "Leadership", "Orphan"},
		{"q4", DefaultCluster, DefaultCompetency},
	}
	for _, c := range cases {
		q, found := qm.Get(c.key)
		require.True(t, found, c.key)
		assert.Equal(t, c.cluster, q.Cluster, c.key)
		assert.Equal(t, c.competency, q.Competency, c.key)
	}
}

func TestBuildQuestionMap_NumericImportedFromIDs(t *testing.T) {
	catalog := NewCatalog(
		[]model.Cluster{{ID: "7", Name: "People"}},
		[]model.Competency{{ID: "42", ClusterID: "7", Name: "Coaching"}},
	)
	const doc = `{"pages": [{"elements": [{"type": "rating", "name": "q1", "importedFrom": {"competencyId": 42}}]}]}`
	q, found := BuildQuestionMap([]byte(doc), catalog).Get("q1")
	require.True(t, found)
	assert.Equal(t, "People", q.Cluster)
	assert.Equal(t, "Coaching", q.Competency)
}

func TestBuildQuestionMap_OptionSourcePreference(t *testing.T) {
	const doc = `{"pages": [{"elements": [
		{"type": "radiogroup", "name": "q1",
		 "config": {"ratingOptions": [{"text": "Poor", "score": 1}, {"text": "Great", "score": 5}],
		            "options": [{"text": "Poor", "score": 9}]},
		 "choices": [{"text": "Poor", "score": 7}]},
		{"type": "radiogroup", "name": "q2",
		 "config": {"ratingOptions": [{"text": "Unscored"}], "choices": [{"text": "Fair", "Score": 3}]}},
		{"type": "dropdown", "name": "q3",
		 "choices": [{"text": "Low", "id": "2"}, {"text": "High", "order": 3}, "Plain"]}
	]}]}`
	qm := BuildQuestionMap([]byte(doc), testCatalog)

	q1, _ := qm.Get("q1")
	score, found := q1.Options.Lookup("poor")
	require.True(t, found)
	assert.Equal(t, 1, score, "config.ratingOptions wins over later sources")
	score, _ = q1.Options.Lookup("GREAT")
	assert.Equal(t, 5, score)

	q2, _ := qm.Get("q2")
	score, found = q2.Options.Lookup("fair")
	require.True(t, found, "source without scores is skipped")
	assert.Equal(t, 3, score)

	q3, _ := qm.Get("q3")
	score, _ = q3.Options.Lookup("low")
	assert.Equal(t, 2, score, "id as integer")
	score, _ = q3.Options.Lookup("high")
	assert.Equal(t, 4, score, "order + 1")
	_, found = q3.Options.Lookup("plain")
	assert.False(t, found)
}

func TestBuildQuestionMap_ValueRegisteredAlongsideText(t *testing.T) {
	const doc = `{"pages": [{"elements": [
		{"type": "radiogroup", "name": "q1", "choices": [{"value": "agree", "text": "I agree", "score": 4}]}
	]}]}`
	q, _ := BuildQuestionMap([]byte(doc), testCatalog).Get("q1")
	byText, _ := q.Options.Lookup("i agree")
	byValue, _ := q.Options.Lookup("Agree")
	assert.Equal(t, 4, byText)
	assert.Equal(t, 4, byValue)
}

func TestBuildQuestionMap_Matrix(t *testing.T) {
	const doc = `{"pages": [{"elements": [
		{"type": "matrix", "name": "matrixQ", "importedFrom": {"competencyId": "k1"},
		 "rows": [
			{"value": "Communication", "text": "Communicates clearly"},
			{"value": "Teamwork", "importedFrom": {"competencyId": "k2"}},
			"Ownership"
		 ],
		 "columns": [
			{"value": 1, "text": "Never"},
			{"value": "0", "text": "N/A"},
			{"value": "x", "text": "Broken"},
			{"value": 5, "text": "Always"}
		 ]}
	]}]}`
	qm := BuildQuestionMap([]byte(doc), testCatalog)
	require.Equal(t, 3, qm.Len())

	communication, found := qm.Get("matrixQ:Communication")
	require.True(t, found)
	assert.Equal(t, "Communicates clearly", communication.Text)
	assert.Equal(t, "Vision", communication.Competency, "falls back to question importedFrom")
	assert.Equal(t, TypeMatrix, communication.Type)

	teamwork, _ := qm.Get("matrixQ:Teamwork")
	assert.Equal(t, "Teamwork", teamwork.Text, "row text falls back to row value")
	assert.Equal(t, "Delivery", teamwork.Competency, "row importedFrom wins")
	assert.Equal(t, "Execution", teamwork.Cluster)

	_, found = qm.Get("matrixQ:Ownership")
	assert.True(t, found)

	score, found := teamwork.Options.Lookup("always")
	require.True(t, found)
	assert.Equal(t, 5, score)
	_, found = teamwork.Options.Lookup("N/A")
	assert.False(t, found, "zero column dropped")
	_, found = teamwork.Options.Lookup("Broken")
	assert.False(t, found, "unparsable column dropped")
}

func TestBuildQuestionMap_MultipleTextAndPanels(t *testing.T) {
	const doc = `{"pages": [
		{"questions": [
			{"type": "panel", "name": "p1", "elements": [
				{"type": "panel", "name": "p2", "elements": [
					{"type": "rating", "name": "deep"}
				]},
				{"type": "multipletext", "name": "mt", "items": [{"name": "a", "title": "First"}, {"name": "b"}]}
			]}
		]},
		{"elements": [
			{"type": "comment", "name": "notes", "title": "Anything else?"},
			{"type": "html", "name": "ignored"},
			{"type": "rating"}
		]}
	]}`
	qm := BuildQuestionMap([]byte(doc), testCatalog)

	keys := make([]string, 0, qm.Len())
	for _, q := range qm.Questions() {
		keys = append(keys, q.Key)
	}
	assert.Equal(t, []string{"deep", "mt:a", "mt:b", "notes"}, keys)

	item, _ := qm.Get("mt:a")
	assert.Equal(t, TypeText, item.Type)
	assert.Equal(t, "First", item.Text)
	assert.Empty(t, item.Competency)
	assert.False(t, item.Scored())

	item, _ = qm.Get("mt:b")
	assert.Equal(t, "b", item.Text)

	notes, _ := qm.Get("notes")
	assert.Equal(t, TypeComment, notes.Type)
	assert.Equal(t, "Anything else?", notes.Text)
}

func TestBuildQuestionMap_DuplicateKeysOverwrite(t *testing.T) {
	const doc = `{"pages": [
		{"elements": [{"type": "rating", "name": "q1", "title": "First"}, {"type": "rating", "name": "q2"}]},
		{"elements": [{"type": "rating", "name": "q1", "title": "Second"}]}
	]}`
	qm := BuildQuestionMap([]byte(doc), testCatalog)
	require.Equal(t, 2, qm.Len())

	q, _ := qm.Get("q1")
	assert.Equal(t, "Second", q.Text)
	assert.Equal(t, 0, qm.Index("q1"))
	assert.Equal(t, 1, qm.Index("q2"))
	assert.Equal(t, -1, qm.Index("missing"))
}

func TestQuestionMap_NilSafe(t *testing.T) {
	var qm *QuestionMap
	assert.Equal(t, 0, qm.Len())
	assert.Nil(t, qm.Questions())
	_, found := qm.Get("q1")
	assert.False(t, found)
}

type countingVisitor struct {
	ratings, matrices, multi, texts int
}

func (c *countingVisitor) VisitRating(*RatingQuestion)       { c.ratings++ }
func (c *countingVisitor) VisitMatrix(*MatrixQuestion)       { c.matrices++ }
func (c *countingVisitor) VisitMultiText(*MultiTextQuestion) { c.multi++ }
func (c *countingVisitor) VisitText(*TextQuestion)           { c.texts++ }

func TestWalk_VisitsEveryVariant(t *testing.T) {
	doc, err := Parse([]byte(`{"pages": [{"elements": [
		{"type": "panel", "elements": [{"type": "matrix", "name": "m", "rows": ["r"]}]},
		{"type": "rating", "name": "r1"},
		{"type": "dropdown", "name": "d1"},
		{"type": "multipletext", "name": "mt", "items": ["x"]},
		{"type": "textarea", "name": "t1"}
	]}]}`))
	require.NoError(t, err)

	v := &countingVisitor{}
	Walk(doc, v)
	assert.Equal(t, &countingVisitor{ratings: 2, matrices: 1, multi: 1, texts: 1}, v)
}
