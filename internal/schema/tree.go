package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Question types understood by the walker.
const (
	TypeRating       = "rating"
	TypeRadioGroup   = "radiogroup"
	TypeDropdown     = "dropdown"
	TypeMatrix       = "matrix"
	TypeMultipleText = "multipletext"
	TypeText         = "text"
	TypeComment      = "comment"
	TypeTextArea     = "textarea"
	TypePanel        = "panel"
)

// ErrNoPages is returned by Parse when the document has no pages array.
var ErrNoPages = errors.New("schema: missing pages")

// Document is the typed form of a survey schema.
type Document struct {
	Pages []Page
}

// Page is one page of the survey; Elements keeps declaration order.
type Page struct {
	Name     string
	Elements []Element
}

// Element is one of *Panel, *RatingQuestion, *MatrixQuestion, *MultiTextQuestion
// or *TextQuestion.
type Element interface {
	element()
}

// Meta links a question to the competency catalog through importedFrom.
type Meta struct {
	ClusterID    string
	CompetencyID string
}

// Choice is one answer option. Scored is false when no score source was present.
type Choice struct {
	Label  string
	Value  string
	Score  int
	Scored bool
}

// OptionSource is a named candidate list of options, e.g. "config.ratingOptions".
type OptionSource struct {
	Name    string
	Choices []Choice
}

// Panel groups nested elements; panels may contain panels.
type Panel struct {
	Name     string
	Elements []Element
}

// RatingQuestion covers rating, radiogroup and dropdown questions.
type RatingQuestion struct {
	ID         string
	Type       string
	OthersText string
	SelfText   string
	Title      string
	Name       string
	RawID      string
	RateMin    int
	RateMax    int
	// Sources are ordered by preference: config.ratingOptions, config.options,
	// config.choices, choices, rateValues.
	Sources []OptionSource
	Meta    *Meta
}

// MatrixRow is one statement of a matrix question.
type MatrixRow struct {
	// Value is the answer key and the suffix of the composite question key.
	Value string
	Text  string
	// Meta overrides the question's importedFrom when present.
	Meta *Meta
}

// MatrixQuestion rates every row against a shared column scale.
type MatrixQuestion struct {
	ID      string
	Title   string
	Rows    []MatrixRow
	Columns []Choice
	Meta    *Meta
}

// TextItem is one free text box of a multiple text question.
type TextItem struct {
	Name  string
	Title string
}

// MultiTextQuestion holds several named free text boxes answered as an object.
type MultiTextQuestion struct {
	ID    string
	Title string
	Items []TextItem
}

// TextQuestion covers free text answers (text, comment, textarea). Free text
// is never scored, so importedFrom is not kept.
type TextQuestion struct {
	ID    string
	Type  string
	Title string
}

func (*Panel) element()             {}
func (*RatingQuestion) element()    {}
func (*MatrixQuestion) element()    {}
func (*MultiTextQuestion) element() {}
func (*TextQuestion) element()      {}

// TextCandidates returns the display text candidates in preference order.
func (q *RatingQuestion) TextCandidates() []string {
	return []string{q.OthersText, q.SelfText, q.Title, q.Name, q.RawID}
}

// DisplayText returns the first non-empty text candidate.
func (q *RatingQuestion) DisplayText() string {
	return firstNonEmpty(q.TextCandidates()...)
}

// Parse decodes a survey schema into its typed tree. Elements with unknown types
// or without an identifier are dropped.
func Parse(raw []byte) (*Document, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var root map[string]any
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("schema: decode: %w", err)
	}

	rawPages, found := root["pages"]
	if !found || rawPages == nil {
		return nil, ErrNoPages
	}
	pages, ok := rawPages.([]any)
	if !ok {
		return nil, fmt.Errorf("schema: pages is %T, expected array", rawPages)
	}

	doc := &Document{Pages: make([]Page, 0, len(pages))}
	for _, p := range pages {
		obj, ok := p.(map[string]any)
		if !ok {
			continue
		}
		doc.Pages = append(doc.Pages, Page{
			Name:     str(obj["name"]),
			Elements: parseElements(obj),
		})
	}
	return doc, nil
}

// parseElements reads "elements", falling back to "questions".
func parseElements(container map[string]any) []Element {
	list, ok := container["elements"].([]any)
	if !ok {
		list, _ = container["questions"].([]any)
	}

	elements := make([]Element, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if el := parseElement(obj); el != nil {
			elements = append(elements, el)
		}
	}
	return elements
}

func parseElement(obj map[string]any) Element {
	kind := strings.ToLower(str(obj["type"]))
	if kind == TypePanel {
		return &Panel{Name: str(obj["name"]), Elements: parseElements(obj)}
	}

	name := str(obj["name"])
	rawID := str(obj["id"])
	id := firstNonEmpty(name, rawID)
	if id == "" {
		return nil
	}
	meta := parseMeta(obj["importedFrom"])

	switch kind {
	case TypeRating, TypeRadioGroup, TypeDropdown:
		config, _ := obj["config"].(map[string]any)
		q := &RatingQuestion{
			ID:         id,
			Type:       kind,
			OthersText: localized(obj["othersText"]),
			SelfText:   localized(obj["selfText"]),
			Title:      localized(obj["title"]),
			Name:       name,
			RawID:      rawID,
			RateMin:    1,
			RateMax:    5,
			Meta:       meta,
		}
		if v, ok := toInt(firstPresent(obj["rateMin"], config["min"])); ok {
			q.RateMin = v
		}
		if v, ok := toInt(firstPresent(obj["rateMax"], config["max"])); ok {
			q.RateMax = v
		}
		q.Sources = []OptionSource{
			{Name: "config.ratingOptions", Choices: parseChoices(config["ratingOptions"])},
			{Name: "config.options", Choices: parseChoices(config["options"])},
			{Name: "config.choices", Choices: parseChoices(config["choices"])},
			{Name: "choices", Choices: parseChoices(obj["choices"])},
			{Name: "rateValues", Choices: parseChoices(obj["rateValues"])},
		}
		return q
	case TypeMatrix:
		return &MatrixQuestion{
			ID:      id,
			Title:   localized(obj["title"]),
			Rows:    parseRows(obj["rows"]),
			Columns: parseColumns(obj["columns"]),
			Meta:    meta,
		}
	case TypeMultipleText:
		q := &MultiTextQuestion{ID: id, Title: localized(obj["title"])}
		items, _ := obj["items"].([]any)
		for _, item := range items {
			switch it := item.(type) {
			case map[string]any:
				if n := str(it["name"]); n != "" {
					q.Items = append(q.Items, TextItem{Name: n, Title: localized(it["title"])})
				}
			default:
				if n := str(it); n != "" {
					q.Items = append(q.Items, TextItem{Name: n})
				}
			}
		}
		return q
	case TypeText, TypeComment, TypeTextArea:
		return &TextQuestion{
			ID:    id,
			Type:  kind,
			Title: firstNonEmpty(localized(obj["title"]), name, rawID),
		}
	}
	return nil
}

func parseMeta(v any) *Meta {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	meta := &Meta{
		ClusterID:    str(obj["clusterId"]),
		CompetencyID: str(obj["competencyId"]),
	}
	if meta.ClusterID == "" && meta.CompetencyID == "" {
		return nil
	}
	return meta
}

func parseRows(v any) []MatrixRow {
	list, _ := v.([]any)
	rows := make([]MatrixRow, 0, len(list))
	for _, item := range list {
		var row MatrixRow
		switch it := item.(type) {
		case map[string]any:
			row.Value = str(it["value"])
			row.Text = firstNonEmpty(localized(it["text"]), row.Value)
			row.Meta = parseMeta(it["importedFrom"])
		default:
			row.Value = str(it)
			row.Text = row.Value
		}
		if row.Value != "" {
			rows = append(rows, row)
		}
	}
	return rows
}

// parseColumns reads matrix columns; the column value is the score. Zero or
// unparsable values are dropped.
func parseColumns(v any) []Choice {
	list, _ := v.([]any)
	columns := make([]Choice, 0, len(list))
	for _, item := range list {
		var c Choice
		switch it := item.(type) {
		case map[string]any:
			c.Value = str(it["value"])
			c.Label = firstNonEmpty(localized(it["text"]), c.Value)
		default:
			c.Value = str(it)
			c.Label = c.Value
		}
		score, ok := toInt(c.Value)
		if !ok || score == 0 {
			continue
		}
		c.Score, c.Scored = score, true
		columns = append(columns, c)
	}
	return columns
}

// parseChoices reads one candidate option list. Score sources per option are tried
// in order: score, Score, id as integer, order+1.
func parseChoices(v any) []Choice {
	list, _ := v.([]any)
	choices := make([]Choice, 0, len(list))
	for _, item := range list {
		var c Choice
		obj, isObj := item.(map[string]any)
		if !isObj {
			c.Value = str(item)
			c.Label = c.Value
			if c.Label != "" {
				choices = append(choices, c)
			}
			continue
		}

		c.Value = str(obj["value"])
		c.Label = firstNonEmpty(localized(obj["text"]), c.Value)
		if c.Label == "" {
			continue
		}
		if score, ok := toInt(obj["score"]); ok {
			c.Score, c.Scored = score, true
		} else if score, ok := toInt(obj["Score"]); ok {
			c.Score, c.Scored = score, true
		} else if score, ok := toInt(obj["id"]); ok {
			c.Score, c.Scored = score, true
		} else if order, ok := toInt(obj["order"]); ok {
			c.Score, c.Scored = order+1, true
		}
		choices = append(choices, c)
	}
	return choices
}

// localized flattens SurveyJS localisable strings: a plain string, or an object
// with "default", then "en", then the alphabetically first non-empty value.
func localized(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return str(v)
	}
	if s := str(obj["default"]); s != "" {
		return s
	}
	if s := str(obj["en"]); s != "" {
		return s
	}
	locales := make([]string, 0, len(obj))
	for locale := range obj {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	for _, locale := range locales {
		if s := str(obj[locale]); s != "" {
			return s
		}
	}
	return ""
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		return 0, false
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
		return 0, false
	case int:
		return t, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
