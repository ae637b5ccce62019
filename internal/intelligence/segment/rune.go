package segment

import "unicode"

// RuneSegmenter needs no dictionary.  Every Han character and every
// punctuation mark is its own token, runs of letters and digits form one
// token, and whitespace is skipped.
type RuneSegmenter struct{}

func NewRuneSegmenter() *RuneSegmenter { return &RuneSegmenter{} }

func (RuneSegmenter) Name() string { return EngineRune }

func (RuneSegmenter) Segment(text string) []string {
	var (
		out  []string
		word []rune
	)
	flush := func() {
		if len(word) > 0 {
			out = append(out, string(word))
			word = word[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			out = append(out, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word = append(word, r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			out = append(out, string(r))
		}
	}
	flush()
	return out
}
