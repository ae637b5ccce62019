package segment

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Locator finds substrings of a fixed text and reports rune offsets.
// Searching is done on the UTF-8 bytes; offsets[i] is the byte offset of rune
// i, with a final entry equal to len(text).
type Locator struct {
	text    string
	offsets []int
}

// NewLocator indexes text.  A Locator is immutable and safe for concurrent
// use.
func NewLocator(text string) *Locator {
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))
	return &Locator{text: text, offsets: offsets}
}

// Text returns the indexed text.
func (l *Locator) Text() string { return l.text }

// RuneLen returns the number of runes in the text.
func (l *Locator) RuneLen() int { return len(l.offsets) - 1 }

// Slice returns the runes in [start, end).
func (l *Locator) Slice(start, end int) string {
	return l.text[l.offsets[start]:l.offsets[end]]
}

func (l *Locator) runeAt(byteOff int) int {
	return sort.SearchInts(l.offsets, byteOff)
}

// Index returns the rune offset of the first occurrence of sub that starts at
// or after rune offset from, and its end offset.  ok is false when there is
// none, when sub is empty, or when from is past the end.
func (l *Locator) Index(sub string, from int) (start, end int, ok bool) {
	if sub == "" || from < 0 || from > l.RuneLen() {
		return 0, 0, false
	}
	base := l.offsets[from]
	i := strings.Index(l.text[base:], sub)
	if i < 0 {
		return 0, 0, false
	}
	b := base + i
	return l.runeAt(b), l.runeAt(b + len(sub)), true
}

// IndexFallback is Index from cursor, retried from 0 when the forward search
// fails.  Tokens that the segmenter emitted out of order still get placed at
// their first occurrence.
func (l *Locator) IndexFallback(sub string, cursor int) (start, end int, ok bool) {
	if start, end, ok = l.Index(sub, cursor); ok {
		return start, end, true
	}
	return l.Index(sub, 0)
}

// Occurrence is one match reported by All.
type Occurrence struct {
	Start, End int
}

// All returns every occurrence of sub, resuming each search one rune after
// the previous match start, so overlapping matches are all reported.
func (l *Locator) All(sub string) []Occurrence {
	var out []Occurrence
	from := 0
	for {
		start, end, ok := l.Index(sub, from)
		if !ok {
			return out
		}
		out = append(out, Occurrence{Start: start, End: end})
		from = start + 1
	}
}
