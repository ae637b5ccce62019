package segment

import (
	"strings"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

// Segmenter splits text into an ordered list of tokens.  Implementations
// must be safe for concurrent use.  Offsets are never taken from a
// Segmenter; the Tokenizer recovers them from the source text.
type Segmenter interface {
	Name() string
	Segment(text string) []string
}

const (
	EngineGse  = "gse"
	EngineRune = "rune"
)

// Config selects and configures a Segmenter.
type Config struct {
	Engine string `mapstructure:"engine"`
	// DictFiles are extra dictionary files for gse.  Empty loads the
	// embedded Chinese dictionary.
	DictFiles []string `mapstructure:"dict_files"`
	// HMM enables gse's hidden Markov model for unknown words.
	HMM bool `mapstructure:"hmm"`
	// PinyinStyle is one of normal, tone, tone3; empty disables pinyin.
	PinyinStyle string `mapstructure:"pinyin_style"`
}

// New builds the Segmenter named by cfg.Engine.
func New(cfg Config, logger logging.Logger) (Segmenter, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	switch strings.ToLower(cfg.Engine) {
	case "", EngineGse:
		s, err := NewGseSegmenter(cfg.DictFiles, cfg.HMM)
		if err != nil {
			return nil, err
		}
		logger.Info("segmenter ready", logging.String("engine", EngineGse), logging.Int("dict_files", len(cfg.DictFiles)), logging.Bool("hmm", cfg.HMM))
		return s, nil
	case EngineRune:
		logger.Info("segmenter ready", logging.String("engine", EngineRune))
		return NewRuneSegmenter(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeSegmenterUnsupported, "unsupported segmenter engine %q", cfg.Engine)
	}
}
