package cli

import (
	"context"

	"github.com/turtacn/Guwen-Annotator/internal/app"
	"github.com/turtacn/Guwen-Annotator/internal/application/reading"
	"github.com/turtacn/Guwen-Annotator/pkg/client"
)

// Backend is what the reading commands call, either in-process or over
// HTTP.
type Backend interface {
	Segment(ctx context.Context, passage string, pinyin bool) (*reading.SegmentOutput, error)
	Annotate(ctx context.Context, passage string) (*reading.AnnotateOutput, error)
	Analyze(ctx context.Context, passage, model string) (string, error)
	Ask(ctx context.Context, passage, question, model string) (string, error)
	Close() error
}

type localBackend struct {
	app *app.App
}

func (b *localBackend) Segment(ctx context.Context, passage string, pinyin bool) (*reading.SegmentOutput, error) {
	return b.app.Service.Segment(ctx, &reading.SegmentInput{Text: passage, Pinyin: pinyin})
}

func (b *localBackend) Annotate(ctx context.Context, passage string) (*reading.AnnotateOutput, error) {
	return b.app.Service.AutoAnnotate(ctx, &reading.AnnotateInput{Text: passage})
}

func (b *localBackend) Analyze(ctx context.Context, passage, model string) (string, error) {
	return b.app.Service.Analyze(ctx, &reading.AnalyzeInput{Text: passage, Model: model})
}

func (b *localBackend) Ask(ctx context.Context, passage, question, model string) (string, error) {
	return b.app.Service.Ask(ctx, &reading.AskInput{Text: passage, Question: question, Model: model})
}

func (b *localBackend) Close() error { return b.app.Close() }

type remoteBackend struct {
	client *client.Client
}

func (b *remoteBackend) Segment(ctx context.Context, passage string, pinyin bool) (*reading.SegmentOutput, error) {
	out, err := b.client.Segment(ctx, passage, pinyin)
	if err != nil {
		return nil, err
	}
	return &reading.SegmentOutput{Tokens: out.Tokens, Stats: out.Stats, Engine: out.Engine}, nil
}

func (b *remoteBackend) Annotate(ctx context.Context, passage string) (*reading.AnnotateOutput, error) {
	out, err := b.client.AutoAnnotate(ctx, passage)
	if err != nil {
		return nil, err
	}
	return &reading.AnnotateOutput{Annotations: out.Annotations, Stats: out.Stats}, nil
}

func (b *remoteBackend) Analyze(ctx context.Context, passage, model string) (string, error) {
	return b.client.Analyze(ctx, passage, model)
}

func (b *remoteBackend) Ask(ctx context.Context, passage, question, model string) (string, error) {
	return b.client.Ask(ctx, passage, question, model)
}

func (b *remoteBackend) Close() error { return nil }
