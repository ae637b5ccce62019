// Package text defines the span types shared by the segmentation and
// annotation pipelines and by API clients.
//
// All offsets are rune offsets into the original string: for a span s over
// text T, string([]rune(T)[s.Start:s.End]) == s.Text.
package text

import (
	"fmt"
	"strings"
)

// Label is an entity category.  Values are kept in the source vocabulary
// because that is what the model is asked to produce and what callers expect
// on the wire.
type Label string

const (
	LabelPerson  Label = "人物"
	LabelPlace   Label = "地名"
	LabelTime    Label = "时间"
	LabelObject  Label = "器物"
	LabelConcept Label = "概念"
)

var englishLabel = map[Label]string{
	LabelPerson:  "person",
	LabelPlace:   "place",
	LabelTime:    "time",
	LabelObject:  "object",
	LabelConcept: "concept",
}

// AllLabels returns the vocabulary in prompt order.
func AllLabels() []Label {
	return []Label{LabelPerson, LabelPlace, LabelTime, LabelObject, LabelConcept}
}

// IsValid reports whether l is one of the five vocabulary labels.
func (l Label) IsValid() bool {
	_, ok := englishLabel[l]
	return ok
}

// English returns the English alias of l, or "" when l is not valid.
func (l Label) English() string {
	return englishLabel[l]
}

func (l Label) String() string { return string(l) }

// ParseLabel accepts either the source-vocabulary form or its English alias
// (case-insensitive).
func ParseLabel(s string) (Label, error) {
	if l := Label(s); l.IsValid() {
		return l, nil
	}
	want := strings.ToLower(strings.TrimSpace(s))
	for l, en := range englishLabel {
		if en == want {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown label %q", s)
}

// TokenSpan is one segmenter token anchored in the source text.
type TokenSpan struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	// Pinyin holds space-separated readings of the Han characters in Text.
	Pinyin string `json:"pinyin,omitempty"`
}

// Len returns the span length in runes.
func (t TokenSpan) Len() int { return t.End - t.Start }

// EntitySpan is one labelled occurrence of an entity in the source text.
type EntitySpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label Label  `json:"label"`
	Text  string `json:"text"`
}

// Key identifies a span for deduplication.
type Key struct {
	Start, End int
	Label      Label
}

func (e EntitySpan) Key() Key { return Key{Start: e.Start, End: e.End, Label: e.Label} }

// AnnotationStats counts mentions that did not produce spans.
type AnnotationStats struct {
	// Mentions is the number of array elements in the model answer.
	Mentions int `json:"mentions"`
	// Malformed elements were not objects or lacked a non-empty string
	// text or a string label.
	Malformed int `json:"malformed"`
	// InvalidLabel elements carried a label outside the vocabulary.
	InvalidLabel int `json:"invalid_label"`
	// Unmatched mentions were well formed but absent from the text.
	Unmatched int `json:"unmatched"`
	// Duplicates is the number of spans removed by deduplication.
	Duplicates int `json:"duplicates"`
}

// Dropped returns the counters keyed by reason, as used for metrics.
func (s AnnotationStats) Dropped() map[string]int {
	return map[string]int{
		"malformed":     s.Malformed,
		"invalid_label": s.InvalidLabel,
		"unmatched":     s.Unmatched,
		"duplicate":     s.Duplicates,
	}
}

// SegmentStats reports tokens the locator could not place.
type SegmentStats struct {
	Tokens  int `json:"tokens"`
	Dropped int `json:"dropped"`
}
