package schema

import (
	"log/slog"

	"panorama/internal/model"
)

const (
	DefaultCluster    = "Uncategorized"
	DefaultCompetency = "General"
)

// Question is the flattened metadata of one scorable or free-text answer slot.
type Question struct {
	// Key is the question name, or "questionId:rowOrItem" for matrix rows and
	// multiple text items.
	Key        string `json:"key"`
	Text       string `json:"text"`
	Type       string `json:"type"`
	Cluster    string `json:"cluster,omitempty"`
	Competency string `json:"competency,omitempty"`
	RateMin    int    `json:"rateMin,omitempty"`
	RateMax    int    `json:"rateMax,omitempty"`

	Options OptionScores `json:"-"`
}

// Scored reports whether answers to the question are resolved to numbers.
func (q *Question) Scored() bool {
	switch q.Type {
	case TypeRating, TypeRadioGroup, TypeDropdown, TypeMatrix:
		return true
	}
	return false
}

// QuestionMap is an ordered, read-only mapping from question key to metadata.
type QuestionMap struct {
	order []string
	byKey map[string]*Question
}

func newQuestionMap() *QuestionMap {
	return &QuestionMap{byKey: make(map[string]*Question)}
}

// put stores q; a duplicate key replaces the earlier value but keeps its position.
func (m *QuestionMap) put(q *Question) {
	if _, exists := m.byKey[q.Key]; !exists {
		m.order = append(m.order, q.Key)
	}
	m.byKey[q.Key] = q
}

// Get returns the question registered under key.
func (m *QuestionMap) Get(key string) (*Question, bool) {
	if m == nil {
		return nil, false
	}
	q, found := m.byKey[key]
	return q, found
}

// Len returns the number of questions.
func (m *QuestionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// Questions returns the questions in walk order.
func (m *QuestionMap) Questions() []*Question {
	if m == nil {
		return nil
	}
	out := make([]*Question, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.byKey[key])
	}
	return out
}

// Index returns the walk position of key, or -1.
func (m *QuestionMap) Index(key string) int {
	if m == nil {
		return -1
	}
	for i, k := range m.order {
		if k == key {
			return i
		}
	}
	return -1
}

// Catalog resolves importedFrom identifiers to cluster and competency names.
type Catalog struct {
	clusters     map[string]model.Cluster
	competencies map[string]model.Competency
}

// NewCatalog indexes clusters and competencies by identifier.
func NewCatalog(clusters []model.Cluster, competencies []model.Competency) Catalog {
	c := Catalog{
		clusters:     make(map[string]model.Cluster, len(clusters)),
		competencies: make(map[string]model.Competency, len(competencies)),
	}
	for _, cl := range clusters {
		c.clusters[cl.ID] = cl
	}
	for _, co := range competencies {
		c.competencies[co.ID] = co
	}
	return c
}

// Resolve returns the cluster and competency names for meta, falling back to
// DefaultCluster and DefaultCompetency for anything it cannot resolve.
func (c Catalog) Resolve(meta *Meta) (cluster, competency string) {
	cluster, competency = DefaultCluster, DefaultCompetency
	if meta == nil {
		return
	}

	clusterID := meta.ClusterID
	if co, found := c.competencies[meta.CompetencyID]; found && meta.CompetencyID != "" {
		competency = co.Name
		if co.ClusterID != "" {
			clusterID = co.ClusterID
		}
	}
	if cl, found := c.clusters[clusterID]; found && clusterID != "" {
		cluster = cl.Name
	}
	return
}

// BuildQuestionMap walks raw and returns the flattened question map. Malformed
// documents yield an empty map; the failure is logged, never returned.
func BuildQuestionMap(raw []byte, catalog Catalog) *QuestionMap {
	doc, err := Parse(raw)
	if err != nil {
		slog.Warn("Unable to parse survey schema", "error", err)
		return newQuestionMap()
	}
	return doc.QuestionMap(catalog)
}

// QuestionMap flattens the document against catalog.
func (d *Document) QuestionMap(catalog Catalog) *QuestionMap {
	b := &mapBuilder{catalog: catalog, questions: newQuestionMap()}
	Walk(d, b)
	return b.questions
}

type mapBuilder struct {
	catalog   Catalog
	questions *QuestionMap
}

func (b *mapBuilder) VisitRating(q *RatingQuestion) {
	cluster, competency := b.catalog.Resolve(q.Meta)
	b.questions.put(&Question{
		Key:        q.ID,
		Text:       q.DisplayText(),
		Type:       q.Type,
		Cluster:    cluster,
		Competency: competency,
		RateMin:    q.RateMin,
		RateMax:    q.RateMax,
		Options:    optionScores(q.Sources),
	})
}

func (b *mapBuilder) VisitMatrix(q *MatrixQuestion) {
	var options OptionScores
	for _, c := range q.Columns {
		options.add(c.Label, c.Score)
		if c.Value != c.Label {
			options.add(c.Value, c.Score)
		}
	}

	for _, row := range q.Rows {
		meta := row.Meta
		if meta == nil {
			meta = q.Meta
		}
		cluster, competency := b.catalog.Resolve(meta)
		b.questions.put(&Question{
			Key:        q.ID + ":" + row.Value,
			Text:       row.Text,
			Type:       TypeMatrix,
			Cluster:    cluster,
			Competency: competency,
			RateMin:    1,
			RateMax:    5,
			Options:    options,
		})
	}
}

func (b *mapBuilder) VisitMultiText(q *MultiTextQuestion) {
	for _, item := range q.Items {
		b.questions.put(&Question{
			Key:  q.ID + ":" + item.Name,
			Text: firstNonEmpty(item.Title, item.Name),
			Type: TypeText,
		})
	}
}

func (b *mapBuilder) VisitText(q *TextQuestion) {
	b.questions.put(&Question{
		Key:  q.ID,
		Text: q.Title,
		Type: q.Type,
	})
}

// optionScores uses the first source that carries at least one scored option.
func optionScores(sources []OptionSource) OptionScores {
	for _, source := range sources {
		var options OptionScores
		for _, c := range source.Choices {
			if !c.Scored {
				continue
			}
			options.add(c.Label, c.Score)
			if c.Value != "" && c.Value != c.Label {
				options.add(c.Value, c.Score)
			}
		}
		if options.Len() > 0 {
			return options
		}
	}
	return OptionScores{}
}
