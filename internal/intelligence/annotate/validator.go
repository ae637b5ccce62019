// Package annotate reconciles a model's entity answer with the source text.
//
// The model is asked for a JSON array of {"text", "label"} mentions.  Its
// answer is untrusted: it may be fenced in markdown, contain elements of the
// wrong shape, use labels outside the vocabulary, or name strings that do not
// occur in the text.  Validate keeps what can be verified against the source
// and counts the rest; Finalize makes the span list canonical.
package annotate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/turtacn/Guwen-Annotator/internal/intelligence/segment"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
	"github.com/turtacn/Guwen-Annotator/pkg/types/text"
)

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?\\s*\\n")
	fenceClose = regexp.MustCompile("\\n```\\s*$")
)

// RawMention is one decoded array element before validation.
type RawMention struct {
	Text  string
	Label text.Label
}

// Result is the output of Validate.
type Result struct {
	Spans []text.EntitySpan
	Stats text.AnnotationStats
}

// StripFence removes a surrounding markdown code fence, with or without a
// json language tag.  Answers that do not start with a fence are only
// trimmed.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseMentions decodes the answer into mentions.  Elements that are not
// objects with string text and label, or whose text is empty, are counted as
// malformed; labels outside the vocabulary are counted separately.
func ParseMentions(raw string) ([]RawMention, text.AnnotationStats, error) {
	var stats text.AnnotationStats

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(StripFence(raw)), &elems); err != nil {
		return nil, stats, errors.Wrap(err, errors.ErrCodeAnnotationParse, "model answer is not a JSON array").
			WithDetail(raw)
	}
	if elems == nil {
		// JSON null decodes without error.
		return nil, stats, errors.New(errors.ErrCodeAnnotationParse, "model answer is not a JSON array").
			WithDetail(raw)
	}

	stats.Mentions = len(elems)
	out := make([]RawMention, 0, len(elems))
	for _, el := range elems {
		var obj map[string]interface{}
		if err := json.Unmarshal(el, &obj); err != nil || obj == nil {
			stats.Malformed++
			continue
		}
		mention, ok := obj["text"].(string)
		label, okLabel := obj["label"].(string)
		if !ok || !okLabel || mention == "" {
			stats.Malformed++
			continue
		}
		if !text.Label(label).IsValid() {
			stats.InvalidLabel++
			continue
		}
		out = append(out, RawMention{Text: mention, Label: text.Label(label)})
	}
	return out, stats, nil
}

// Validate parses raw and expands every kept mention into one span per
// occurrence in src.  Overlapping occurrences are all reported.  Spans are
// returned in mention order; pass them through Finalize for the canonical
// form.
func Validate(raw, src string) (*Result, error) {
	mentions, stats, err := ParseMentions(raw)
	if err != nil {
		return nil, err
	}
	loc := segment.NewLocator(src)
	res := &Result{Stats: stats}
	for _, m := range mentions {
		occ := loc.All(m.Text)
		if len(occ) == 0 {
			res.Stats.Unmatched++
			continue
		}
		for _, o := range occ {
			res.Spans = append(res.Spans, text.EntitySpan{
				Start: o.Start,
				End:   o.End,
				Label: m.Label,
				Text:  m.Text,
			})
		}
	}
	return res, nil
}

// Reconcile is Validate followed by Finalize, with the number of removed
// duplicates recorded in Stats.
func Reconcile(raw, src string) (*Result, error) {
	res, err := Validate(raw, src)
	if err != nil {
		return nil, err
	}
	before := len(res.Spans)
	res.Spans = Finalize(res.Spans)
	res.Stats.Duplicates = before - len(res.Spans)
	return res, nil
}
