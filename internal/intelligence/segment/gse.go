package segment

import (
	"github.com/go-ego/gse"

	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

// GseSegmenter is a dictionary segmenter in precise mode, the Go equivalent
// of jieba's default cut.
type GseSegmenter struct {
	seg gse.Segmenter
	hmm bool
}

// NewGseSegmenter loads dictFiles, or the embedded Chinese dictionary when
// none are given.  Loading takes a noticeable fraction of a second; build one
// instance per process.
func NewGseSegmenter(dictFiles []string, hmm bool) (*GseSegmenter, error) {
	var (
		seg gse.Segmenter
		err error
	)
	seg.SkipLog = true
	if len(dictFiles) == 0 {
		err = seg.LoadDict()
	} else {
		err = seg.LoadDict(dictFiles...)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSegmenterInit, "failed to load gse dictionary")
	}
	return &GseSegmenter{seg: seg, hmm: hmm}, nil
}

func (g *GseSegmenter) Name() string { return EngineGse }

func (g *GseSegmenter) Segment(text string) []string {
	return g.seg.Cut(text, g.hmm)
}
