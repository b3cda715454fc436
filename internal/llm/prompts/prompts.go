// Package prompts renders the explanation prompts sent to the LLM.
package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/eambriza/pmp-coach/internal/model"
)

var markupRegex = regexp.MustCompile(`(?i)</?\s*(question|system-instructions)\b[^>]*>`)

// Variant selects how much detail an explanation carries.
type Variant string

const (
	Brief    Variant = "brief"
	Standard Variant = "standard"
	Detailed Variant = "detailed"
)

// Variants lists the known variants.
var Variants = []Variant{Brief, Standard, Detailed}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Variant]*template.Template
)

// IsValidVariant checks if v names a known variant.
func IsValidVariant(v string) bool {
	for _, known := range Variants {
		if Variant(v) == known {
			return true
		}
	}
	return false
}

// ExplainData is the template input.
type ExplainData struct {
	Question      string
	Options       []OptionLine
	CorrectAnswer string
	Selected      string
	Explanation   string
	Tags          string
}

// OptionLine is one lettered choice.
type OptionLine struct {
	Letter string
	Text   string
}

// Load parses prompts/explain_<variant>.txt from fsys once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		templates = make(map[Variant]*template.Template)
		for _, v := range Variants {
			name := "prompts/explain_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// BuildExplainPrompt renders the system prompt for explaining q. selected
// is the learner's choice and may be empty.
func BuildExplainPrompt(variant Variant, q model.Question, selected model.Option) (string, error) {
	if templates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data := ExplainData{
		Question:      sanitize(q.Text),
		CorrectAnswer: string(q.CorrectAnswer),
		Selected:      string(selected),
		Explanation:   sanitize(q.Explanation),
		Tags:          strings.Join(q.Tags, ", "),
	}
	for _, o := range model.AllOptions {
		data.Options = append(data.Options, OptionLine{Letter: string(o), Text: sanitize(q.Options.Get(o))})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitize strips markup that could be mistaken for prompt structure and
// caps very long input.
func sanitize(s string) string {
	s = strings.TrimSpace(markupRegex.ReplaceAllString(s, ""))
	if utf8.RuneCountInString(s) > 4000 {
		s = string([]rune(s)[:4000]) + " [truncated]"
	}
	return s
}
