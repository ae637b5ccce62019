package annotate

import (
	"sort"

	"github.com/turtacn/Guwen-Annotator/pkg/types/text"
)

// Finalize drops spans whose (start, end, label) was already seen, keeping
// the first, and stable-sorts the rest by start.  Finalize(Finalize(x)) ==
// Finalize(x).  The input slice is not modified.
func Finalize(spans []text.EntitySpan) []text.EntitySpan {
	seen := make(map[text.Key]struct{}, len(spans))
	out := make([]text.EntitySpan, 0, len(spans))
	for _, s := range spans {
		k := s.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
