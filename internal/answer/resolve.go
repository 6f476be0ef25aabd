package answer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"panorama/internal/schema"
)

// Response is one decoded submission blob keyed by question name.
type Response map[string]any

// Decode parses a submission blob. Numbers are kept as json.Number so integer
// answers survive unchanged.
func Decode(raw []byte) (Response, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Response{}, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("answer: decode response: %w", err)
	}
	if resp == nil {
		resp = Response{}
	}
	return resp, nil
}

// State classifies a resolved answer.
type State int

const (
	// Unanswered means the key is missing or the value could not be resolved.
	Unanswered State = iota
	// ZeroExcluded means a number was resolved but it is not greater than zero.
	ZeroExcluded
	// Scored means a number greater than zero was resolved.
	Scored
)

func (s State) String() string {
	switch s {
	case ZeroExcluded:
		return "zero-excluded"
	case Scored:
		return "scored"
	}
	return "unanswered"
}

// Result is the outcome of resolving one answer.
type Result struct {
	state State
	value float64
}

func resultOf(v float64) Result {
	if v > 0 {
		return Result{state: Scored, value: v}
	}
	return Result{state: ZeroExcluded, value: v}
}

func (r Result) State() State { return r.state }

// Valid reports whether the answer takes part in averages and sums.
func (r Result) Valid() bool { return r.state == Scored }

// Value returns the resolved number; ok is false only when unanswered.
// Zero is returned as a number here even though Valid is false.
func (r Result) Value() (v float64, ok bool) {
	return r.value, r.state != Unanswered
}

// Lookup finds the raw value for key. Composite keys "parent:sub" fall back to
// resp[parent][sub] when the flat lookup misses.
func Lookup(resp Response, key string) (any, bool) {
	if v, found := resp[key]; found {
		return v, true
	}
	parent, sub, composite := strings.Cut(key, ":")
	if !composite {
		return nil, false
	}
	nested, ok := resp[parent].(map[string]any)
	if !ok {
		return nil, false
	}
	v, found := nested[sub]
	return v, found
}

// Resolve turns the answer stored under key into a number: numeric values are
// used as is, strings are parsed as numbers first and then looked up in the
// question's option scores. q may be nil, in which case only numeric answers resolve.
func Resolve(resp Response, key string, q *schema.Question) Result {
	raw, found := Lookup(resp, key)
	if !found {
		return Result{}
	}

	switch v := raw.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil && finite(f) {
			return resultOf(f)
		}
	case float64:
		if finite(v) {
			return resultOf(v)
		}
	case int:
		return resultOf(float64(v))
	case int64:
		return resultOf(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil && finite(f) {
			return resultOf(f)
		}
		if q != nil {
			if score, ok := q.Options.Lookup(s); ok {
				return resultOf(float64(score))
			}
		}
	}
	return Result{}
}

// Text returns the answer stored under key as verbatim text. Non-string scalars
// are formatted; objects and arrays are encoded as JSON.
func Text(resp Response, key string) (string, bool) {
	raw, found := Lookup(resp, key)
	if !found || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return "", false
	}
	return string(encoded), true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
