package segment

import (
	"strings"

	"github.com/mozillazg/go-pinyin"
)

// PinyinAnnotator renders the readings of Han characters.  Non-Han runes are
// skipped.  Heteronyms resolve to the most common reading.
type PinyinAnnotator struct {
	args pinyin.Args
}

// NewPinyinAnnotator returns nil when style is empty or unknown, meaning
// pinyin is disabled.
func NewPinyinAnnotator(style string) *PinyinAnnotator {
	args := pinyin.NewArgs()
	switch strings.ToLower(style) {
	case "normal":
		args.Style = pinyin.Normal
	case "tone":
		args.Style = pinyin.Tone
	case "tone3":
		args.Style = pinyin.Tone3
	default:
		return nil
	}
	return &PinyinAnnotator{args: args}
}

// Reading returns space-separated readings for s, or "" when s contains no
// Han characters.
func (p *PinyinAnnotator) Reading(s string) string {
	return strings.Join(pinyin.LazyPinyin(s, p.args), " ")
}
