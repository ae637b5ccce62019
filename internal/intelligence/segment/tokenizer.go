package segment

import (
	"context"
	"strings"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
	"github.com/turtacn/Guwen-Annotator/pkg/types/text"
)

// Result is the output of one Tokenize call.
type Result struct {
	Tokens []text.TokenSpan
	Stats  text.SegmentStats
}

// Tokenizer anchors segmenter output in the source text.
type Tokenizer struct {
	seg    Segmenter
	pinyin *PinyinAnnotator
	logger logging.Logger
}

// NewTokenizer wraps seg.  py may be nil; pinyin is then rendered in the
// tone style when a caller asks for it.
func NewTokenizer(seg Segmenter, py *PinyinAnnotator, logger logging.Logger) *Tokenizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Tokenizer{seg: seg, pinyin: py, logger: logger}
}

// Engine returns the name of the underlying segmenter.
func (t *Tokenizer) Engine() string { return t.seg.Name() }

// Tokenize segments src and returns one span per token that could be placed.
//
// Each token is searched forward from the end of the previous placed token.
// If that fails it is searched from the beginning of the text.  Tokens found
// by neither search, and empty tokens, are counted in Stats.Dropped and
// omitted.
func (t *Tokenizer) Tokenize(ctx context.Context, src string, withPinyin bool) (*Result, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.InvalidParam("no text provided")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := t.seg.Segment(src)
	loc := NewLocator(src)

	var py *PinyinAnnotator
	if withPinyin {
		py = t.pinyin
		if py == nil {
			py = NewPinyinAnnotator("tone")
		}
	}

	res := &Result{Tokens: make([]text.TokenSpan, 0, len(raw))}
	cursor := 0
	for _, tok := range raw {
		start, end, ok := loc.IndexFallback(tok, cursor)
		if !ok {
			res.Stats.Dropped++
			t.logger.Debug("token not found in source", logging.String("token", tok), logging.Int("cursor", cursor))
			continue
		}
		span := text.TokenSpan{Text: tok, Start: start, End: end}
		if py != nil {
			span.Pinyin = py.Reading(tok)
		}
		res.Tokens = append(res.Tokens, span)
		cursor = end
	}
	res.Stats.Tokens = len(res.Tokens)
	return res, nil
}
