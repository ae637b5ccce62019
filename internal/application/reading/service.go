// Package reading orchestrates the classical-text reading features:
// segmentation, model explanations and question answering, and automatic
// entity annotation.
package reading

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/annotate"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/llm"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/segment"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
	"github.com/turtacn/Guwen-Annotator/pkg/types/text"
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

type SegmentInput struct {
	Text   string
	Pinyin bool
}

type SegmentOutput struct {
	Tokens []text.TokenSpan  `json:"tokens"`
	Stats  text.SegmentStats `json:"stats"`
	Engine string            `json:"engine"`
}

type AnalyzeInput struct {
	Text  string
	Model string
}

type AskInput struct {
	Text     string
	Question string
	Model    string
}

type AnnotateInput struct {
	Text string
}

type AnnotateOutput struct {
	Annotations []text.EntitySpan    `json:"annotations"`
	Stats       text.AnnotationStats `json:"stats"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service is the application-level contract used by the HTTP and CLI
// interfaces.
type Service interface {
	// Segment splits text into tokens anchored at rune offsets.
	Segment(ctx context.Context, in *SegmentInput) (*SegmentOutput, error)

	// Analyze asks the model for a three-part explanation of the passage.
	Analyze(ctx context.Context, in *AnalyzeInput) (string, error)

	// Ask answers a question about the passage.
	Ask(ctx context.Context, in *AskInput) (string, error)

	// AutoAnnotate asks the model for entity mentions and reconciles them
	// with the passage.  It always uses the configured model.
	AutoAnnotate(ctx context.Context, in *AnnotateInput) (*AnnotateOutput, error)
}

type serviceImpl struct {
	tokenizer *segment.Tokenizer
	gateway   llm.Gateway
	prompts   *llm.PromptBuilder
	events    EventPublisher
	metrics   *prom.AppMetrics
	logger    logging.Logger
	model     string
}

// Deps bundles the collaborators of NewService.  Events, Metrics, Logger and
// Prompts may be nil.
type Deps struct {
	Tokenizer *segment.Tokenizer
	Gateway   llm.Gateway
	Prompts   *llm.PromptBuilder
	Events    EventPublisher
	Metrics   *prom.AppMetrics
	Logger    logging.Logger
	// Model is the configured model name, recorded in annotation events.
	Model string
}

func NewService(d Deps) Service {
	s := &serviceImpl{
		tokenizer: d.Tokenizer,
		gateway:   d.Gateway,
		prompts:   d.Prompts,
		events:    d.Events,
		metrics:   d.Metrics,
		logger:    d.Logger,
		model:     d.Model,
	}
	if s.prompts == nil {
		s.prompts = llm.NewPromptBuilder()
	}
	if s.events == nil {
		s.events = NoopEventPublisher{}
	}
	if s.metrics == nil {
		s.metrics = prom.NewNoopAppMetrics()
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	if s.model == "" {
		s.model = llm.DefaultModel
	}
	return s
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func (s *serviceImpl) Segment(ctx context.Context, in *SegmentInput) (*SegmentOutput, error) {
	if in == nil {
		return nil, errors.InvalidParam("no text provided")
	}
	res, err := s.tokenizer.Tokenize(ctx, in.Text, in.Pinyin)
	if err != nil {
		return nil, err
	}
	engine := s.tokenizer.Engine()
	prom.RecordSegmentation(s.metrics, engine, res.Stats.Tokens, res.Stats.Dropped)
	if res.Stats.Dropped > 0 {
		logging.ForContext(ctx, s.logger).Info("tokens dropped during segmentation",
			logging.String("engine", engine),
			logging.Int("placed", res.Stats.Tokens),
			logging.Int("dropped", res.Stats.Dropped))
	}
	return &SegmentOutput{Tokens: res.Tokens, Stats: res.Stats, Engine: engine}, nil
}

func (s *serviceImpl) Analyze(ctx context.Context, in *AnalyzeInput) (string, error) {
	if in == nil || blank(in.Text) {
		return "", errors.InvalidParam("no text provided")
	}
	prompt, err := s.prompts.Analyze(in.Text)
	if err != nil {
		return "", err
	}
	answer, err := s.gateway.Generate(ctx, &llm.GenerateRequest{Prompt: prompt, Model: in.Model, Operation: llm.OpAnalyze})
	if err != nil {
		prom.RecordError(s.metrics, string(llm.OpAnalyze), errors.GetCode(err).String())
		return "", err
	}
	return answer, nil
}

func (s *serviceImpl) Ask(ctx context.Context, in *AskInput) (string, error) {
	if in == nil || blank(in.Text) || blank(in.Question) {
		return "", errors.InvalidParam("no text or question provided")
	}
	prompt, err := s.prompts.QA(in.Text, in.Question)
	if err != nil {
		return "", err
	}
	answer, err := s.gateway.Generate(ctx, &llm.GenerateRequest{Prompt: prompt, Model: in.Model, Operation: llm.OpQA})
	if err != nil {
		prom.RecordError(s.metrics, string(llm.OpQA), errors.GetCode(err).String())
		return "", err
	}
	return answer, nil
}

func (s *serviceImpl) AutoAnnotate(ctx context.Context, in *AnnotateInput) (*AnnotateOutput, error) {
	if in == nil || blank(in.Text) {
		return nil, errors.InvalidParam("no text provided")
	}
	log := logging.ForContext(ctx, s.logger)
	start := time.Now()
	evt := newAnnotationEvent(in.Text, s.model)

	prompt, err := s.prompts.Annotate(in.Text)
	if err != nil {
		return nil, err
	}
	answer, err := s.gateway.Generate(ctx, &llm.GenerateRequest{Prompt: prompt, Operation: llm.OpAnnotate})
	if err != nil {
		prom.RecordError(s.metrics, string(llm.OpAnnotate), errors.GetCode(err).String())
		s.publish(ctx, failed(evt, err, "", start))
		return nil, err
	}

	res, err := annotate.Reconcile(answer, in.Text)
	if err != nil {
		prom.RecordAnnotationParseFailure(s.metrics)
		prom.RecordError(s.metrics, string(llm.OpAnnotate), errors.GetCode(err).String())
		log.Warn("model answer could not be parsed",
			logging.Err(err),
			logging.Int("answer_bytes", len(answer)),
			logging.String("answer_prefix", headRunes(answer, answerLogRunes)))
		s.publish(ctx, failed(evt, err, answer, start))
		return nil, err
	}

	byLabel := make(map[string]int, len(text.AllLabels()))
	for _, sp := range res.Spans {
		byLabel[sp.Label.String()]++
	}
	prom.RecordAnnotation(s.metrics, byLabel, res.Stats.Dropped())

	log.Info("auto annotation done",
		logging.Int("spans", len(res.Spans)),
		logging.Int("mentions", res.Stats.Mentions),
		logging.Int("malformed", res.Stats.Malformed),
		logging.Int("invalid_label", res.Stats.InvalidLabel),
		logging.Int("unmatched", res.Stats.Unmatched),
		logging.Int("duplicates", res.Stats.Duplicates),
		logging.Duration("elapsed", time.Since(start)))

	evt.Annotations = res.Spans
	evt.Stats = res.Stats
	evt.DurationMs = time.Since(start).Milliseconds()
	s.publish(ctx, evt)

	spans := res.Spans
	if spans == nil {
		spans = []text.EntitySpan{}
	}
	return &AnnotateOutput{Annotations: spans, Stats: res.Stats}, nil
}

func failed(evt *AnnotationEvent, err error, raw string, start time.Time) *AnnotationEvent {
	evt.ErrorCode = errors.GetCode(err).String()
	evt.Error = err.Error()
	evt.RawResponse = raw
	evt.DurationMs = time.Since(start).Milliseconds()
	return evt
}

// answerLogRunes caps how much of an unparsable answer is logged.
const answerLogRunes = 200

// headRunes returns at most n runes of s, marking a cut with "…".
func headRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "…"
		}
		i++
	}
	return s
}

// publish never fails the request.
func (s *serviceImpl) publish(ctx context.Context, evt *AnnotationEvent) {
	topic := EventAnnotationCompleted
	if evt.Failed() {
		topic = EventAnnotationFailed
	}
	if err := s.events.PublishAnnotation(ctx, evt); err != nil {
		prom.RecordEventPublish(s.metrics, topic, false)
		logging.ForContext(ctx, s.logger).Warn("failed to publish annotation event", logging.String("event", topic), logging.Err(err))
		return
	}
	if _, noop := s.events.(NoopEventPublisher); !noop {
		prom.RecordEventPublish(s.metrics, topic, true)
	}
}
