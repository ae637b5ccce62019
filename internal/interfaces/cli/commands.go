package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/Guwen-Annotator/internal/application/reading"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/messaging/kafka"
)

// readPassage joins args, or reads stdin when there are none or the only
// argument is "-".
func readPassage(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
	return strings.Join(args, " "), nil
}

func withTimeout(cmd *cobra.Command, cc *CLIContext) (context.Context, context.CancelFunc) {
	if cc.Timeout > 0 {
		return context.WithTimeout(cmd.Context(), cc.Timeout)
	}
	return context.WithCancel(cmd.Context())
}

func newSegmentCmd() *cobra.Command {
	var pinyin bool
	cmd := &cobra.Command{
		Use:   "segment [text|-]",
		Short: "Split a passage into tokens with character offsets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			passage, err := readPassage(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cc)
			defer cancel()

			out, err := cc.Backend.Segment(ctx, passage, pinyin)
			if err != nil {
				return err
			}
			if cc.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			renderTokens(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pinyin, "pinyin", false, "attach a pinyin reading to every token")
	return cmd
}

func newAnnotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "annotate [text|-]",
		Short: "Ask the model for entities and anchor them in the passage",
		Long: "annotate asks the configured model for 人物, 地名, 时间, 器物 and 概念\n" +
			"mentions and reports every verified occurrence with its offsets.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			passage, err := readPassage(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cc)
			defer cancel()

			out, err := cc.Backend.Annotate(ctx, passage)
			if err != nil {
				return err
			}
			if cc.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), out)
			}
			renderAnnotations(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "analyze [text|-]",
		Short: "Explain a passage: literal meaning, core idea and modern relevance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			passage, err := readPassage(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cc)
			defer cancel()

			res, err := cc.Backend.Analyze(ctx, passage, model)
			if err != nil {
				return err
			}
			return printResult(cmd, cc, res)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model override")
	return cmd
}

func newAskCmd() *cobra.Command {
	var question, model string
	cmd := &cobra.Command{
		Use:   "ask --question Q [text|-]",
		Short: "Answer a question about a passage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			passage, err := readPassage(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd, cc)
			defer cancel()

			res, err := cc.Backend.Ask(ctx, passage, question, model)
			if err != nil {
				return err
			}
			return printResult(cmd, cc, res)
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask (required)")
	cmd.Flags().StringVar(&model, "model", "", "model override")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func printResult(cmd *cobra.Command, cc *CLIContext, res string) error {
	if cc.OutputFormat == "json" {
		return printJSON(cmd.OutOrStdout(), map[string]string{"result": res})
	}
	fmt.Fprintln(cmd.OutOrStdout(), res)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"backend": "none"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "guwen %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
		},
	}
}

func newEventsCmd() *cobra.Command {
	var (
		group         string
		fromBeginning bool
	)
	events := &cobra.Command{
		Use:         "events",
		Short:       "Inspect annotation events",
		Annotations: map[string]string{"backend": "none"},
	}
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Follow the annotation event topics until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cc.Config.Events
			offset := "latest"
			if fromBeginning {
				offset = "earliest"
			}
			consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers:         cfg.Brokers,
				GroupID:         group,
				Topics:          []string{cfg.Topic, cfg.FailedTopic},
				AutoOffsetReset: offset,
			}, cc.Logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return consumer.Run(ctx, eventPrinter(cmd.OutOrStdout()))
		},
	}
	tail.Flags().StringVar(&group, "group", "guwen-cli", "consumer group id")
	tail.Flags().BoolVar(&fromBeginning, "from-beginning", false, "start from the oldest retained event")
	events.AddCommand(tail)
	return events
}

// eventPrinter prints one line per annotation event.
func eventPrinter(w io.Writer) kafka.MessageHandler {
	return func(_ context.Context, msg *kafka.Message) error {
		env, err := kafka.MessageToEventEnvelope(msg)
		if err != nil {
			return err
		}
		var evt reading.AnnotationEvent
		if err := env.DecodePayload(&evt); err != nil {
			return err
		}
		short := evt.TextSHA256
		if len(short) > 12 {
			short = short[:12]
		}
		if evt.Failed() {
			fmt.Fprintf(w, "%s %s text=%s model=%s code=%s error=%q\n",
				env.Timestamp.Format("15:04:05"), env.EventType, short, evt.Model, evt.ErrorCode, evt.Error)
			return nil
		}
		fmt.Fprintf(w, "%s %s text=%s model=%s spans=%d mentions=%d duration=%dms\n",
			env.Timestamp.Format("15:04:05"), env.EventType, short, evt.Model, len(evt.Annotations), evt.Stats.Mentions, evt.DurationMs)
		return nil
	}
}
