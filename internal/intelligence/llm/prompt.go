package llm

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/turtacn/Guwen-Annotator/pkg/errors"
	"github.com/turtacn/Guwen-Annotator/pkg/types/text"
)

// Built-in template names.
const (
	TemplateAnalyze  = "analyze"
	TemplateQA       = "qa"
	TemplateAnnotate = "annotate"
)

const analyzeTemplate = `
请对"{{.Text}}"进行详细解释。你的解释应该尽可能全面,包含以下方面:
1. 对其字面意思的解读。
2. 阐述其核心哲学思想。
3. 结合现代学习或工作场景,谈谈它的现实意义。
请直接给出解释,不要输出任何思考过程，并且必须分成上面那三点进行回答。
`

const qaTemplate = `
原文："{{.Text}}"

问题：{{.Question}}

请针对上面的古文原文，回答用户的问题。请直接给出答案，不要输出思考过程。
`

const annotateTemplate = `
请对以下文本进行实体标注，标出所有的{{join .Labels "、"}}。

文本："{{.Text}}"

要求：
1. 请标注出文中所有的人物（包括人名、称谓）
2. 请标注出文中所有的地名（包括国名、地方名）
3. 请标注出文中所有的时间（包括年代、季节、时辰等）
4. 请标注出文中所有的器物（包括工具、物品、建筑等）
5. 请标注出文中所有的概念（包括抽象概念、思想、制度等）

请直接返回JSON格式的标注结果，格式如下：
[
  {"text": "实体文本", "label": "人物"},
  {"text": "实体文本", "label": "地名"}
]

注意：
- label 必须是以下之一：{{join .Labels "、"}}
- text 是实体在原文中的确切文本
- 只返回JSON数组，不要有其他文字说明
`

var builtinTemplates = map[string]string{
	TemplateAnalyze:  analyzeTemplate,
	TemplateQA:       qaTemplate,
	TemplateAnnotate: annotateTemplate,
}

// PromptData is the value every template is executed with.
type PromptData struct {
	Text     string
	Question string
	Labels   []string
}

// PromptBuilder renders the prompts sent to the model.  Templates may be
// replaced at runtime with RegisterTemplate.
type PromptBuilder struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

func NewPromptBuilder() *PromptBuilder {
	pb := &PromptBuilder{
		templates: make(map[string]*template.Template, len(builtinTemplates)),
		funcMap:   template.FuncMap{"join": strings.Join},
	}
	for name, raw := range builtinTemplates {
		if err := pb.RegisterTemplate(name, raw); err != nil {
			panic(fmt.Sprintf("llm: built-in template %s: %v", name, err))
		}
	}
	return pb
}

func (pb *PromptBuilder) RegisterTemplate(name, body string) error {
	if name == "" {
		return errors.InvalidParam("template name is required")
	}
	if body == "" {
		return errors.InvalidParam("template body is required")
	}
	parsed, err := template.New(name).Funcs(pb.funcMap).Option("missingkey=error").Parse(body)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePromptRender, fmt.Sprintf("parsing template %q", name))
	}
	pb.mu.Lock()
	pb.templates[name] = parsed
	pb.mu.Unlock()
	return nil
}

func (pb *PromptBuilder) Render(name string, data *PromptData) (string, error) {
	pb.mu.RLock()
	tmpl, ok := pb.templates[name]
	pb.mu.RUnlock()
	if !ok {
		return "", errors.Newf(errors.ErrCodePromptRender, "template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, errors.ErrCodePromptRender, fmt.Sprintf("rendering template %q", name))
	}
	return buf.String(), nil
}

// Analyze asks for a three-part explanation of a passage.
func (pb *PromptBuilder) Analyze(passage string) (string, error) {
	return pb.Render(TemplateAnalyze, &PromptData{Text: passage})
}

// QA asks a question about a passage.
func (pb *PromptBuilder) QA(passage, question string) (string, error) {
	return pb.Render(TemplateQA, &PromptData{Text: passage, Question: question})
}

// Annotate asks for the entity mentions of a passage as a JSON array.
func (pb *PromptBuilder) Annotate(passage string) (string, error) {
	labels := text.AllLabels()
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.String()
	}
	return pb.Render(TemplateAnnotate, &PromptData{Text: passage, Labels: names})
}
