package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/Guwen-Annotator/internal/application/reading"
	"github.com/turtacn/Guwen-Annotator/pkg/client"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
	"github.com/turtacn/Guwen-Annotator/pkg/types/text"
)

var labelColors = map[text.Label]*color.Color{
	text.LabelPerson:  color.New(color.FgRed),
	text.LabelPlace:   color.New(color.FgGreen),
	text.LabelTime:    color.New(color.FgBlue),
	text.LabelObject:  color.New(color.FgYellow),
	text.LabelConcept: color.New(color.FgMagenta),
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(headers)
	t.SetAutoWrapText(false)
	t.SetBorder(false)
	return t
}

func renderTokens(w io.Writer, out *reading.SegmentOutput) {
	words := make([]string, len(out.Tokens))
	for i, tok := range out.Tokens {
		words[i] = tok.Text
	}
	fmt.Fprintln(w, strings.Join(words, " / "))
	fmt.Fprintln(w)

	withPinyin := false
	for _, tok := range out.Tokens {
		if tok.Pinyin != "" {
			withPinyin = true
			break
		}
	}
	headers := []string{"Token", "Start", "End"}
	if withPinyin {
		headers = append(headers, "Pinyin")
	}
	t := newTable(w, headers...)
	for _, tok := range out.Tokens {
		row := []string{tok.Text, strconv.Itoa(tok.Start), strconv.Itoa(tok.End)}
		if withPinyin {
			row = append(row, tok.Pinyin)
		}
		t.Append(row)
	}
	t.Render()
	fmt.Fprintf(w, "\n%d tokens (%s), %d dropped\n", out.Stats.Tokens, out.Engine, out.Stats.Dropped)
}

func renderAnnotations(w io.Writer, out *reading.AnnotateOutput) {
	if len(out.Annotations) == 0 {
		fmt.Fprintln(w, "no entities found")
	} else {
		t := newTable(w, "Start", "End", "Label", "Text")
		for _, sp := range out.Annotations {
			label := string(sp.Label)
			if c, ok := labelColors[sp.Label]; ok {
				label = c.Sprint(label)
			}
			t.Append([]string{strconv.Itoa(sp.Start), strconv.Itoa(sp.End), label, sp.Text})
		}
		t.Render()
	}
	s := out.Stats
	fmt.Fprintf(w, "\n%d mentions, %d spans; dropped: malformed=%d invalid_label=%d unmatched=%d duplicate=%d\n",
		s.Mentions, len(out.Annotations), s.Malformed, s.InvalidLabel, s.Unmatched, s.Duplicates)
}

// PrintError writes err to stderr.  A model answer that failed to parse is
// printed after the message.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "%s %s\n", color.RedString("Error:"), err.Error())

	raw := errors.GetDetail(err)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.RawResponse != "" {
		raw = apiErr.RawResponse
	}
	if raw != "" && (errors.IsCode(err, errors.ErrCodeAnnotationParse) || apiErr != nil) {
		fmt.Fprintf(w, "raw model answer:\n%s\n", raw)
	}
}
