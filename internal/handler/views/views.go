// Package views renders the HTML pages of the local practice UI.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	appI18n "github.com/eambriza/pmp-coach/internal/i18n"
	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/parser"
	"github.com/eambriza/pmp-coach/internal/practice"
)

//go:embed templates/*.html
var templateFS embed.FS

type csrfKey struct{}

// WithCSRFToken stores the form token rendered into every form.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfKey{}, token)
}

// CSRFToken returns the token stored by WithCSRFToken.
func CSRFToken(ctx context.Context) string {
	s, _ := ctx.Value(csrfKey{}).(string)
	return s
}

// base holds the parsed templates. Translation helpers are rebound per
// request, so each render clones it.
var base = template.Must(template.New("").Funcs(funcs(context.Background())).ParseFS(templateFS, "templates/*.html"))

func funcs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"T":  func(id string) string { return appI18n.T(ctx, id) },
		"Tp": func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"Td": func(id string, kv ...any) string {
			data := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				key, _ := kv[i].(string)
				data[key] = kv[i+1]
			}
			return appI18n.Td(ctx, id, data)
		},
		"csrf":    func() string { return CSRFToken(ctx) },
		"add":     func(a, b int) int { return a + b },
		"options": func() []model.Option { return model.AllOptions },
		"choice":  func(q model.Question, o model.Option) string { return q.Options.Get(o) },
		"minutes": func(secs int) int { return secs / 60 },
		"seconds": func(secs int) int { return secs % 60 },
		"clock":   clock,
	}
}

// IndexData is everything the single page shows.
type IndexData struct {
	State  practice.State
	Import parser.JobStatus
	Stats  model.Stats
	Recent []int
	// Result is the latest recorded session result.
	Result    *model.SessionResult
	Tags      []model.TagStat
	Incorrect []model.Question
	// Flash is a message ID shown once above the page content.
	Flash     string
	Languages []string
}

// Question returns the question at the session cursor.
func (d IndexData) Question() model.Question {
	s := d.State.Session
	if s == nil || len(s.Questions) == 0 {
		return model.Question{}
	}
	return s.Questions[s.CurrentIndex]
}

// Answer returns the answer at the session cursor.
func (d IndexData) Answer() model.Answer {
	s := d.State.Session
	if s == nil || len(s.Answers) == 0 {
		return model.Answer{}
	}
	return s.Answers[s.CurrentIndex]
}

// Indexes lists the positions of the session questions for the jump bar.
func (d IndexData) Indexes() []int {
	if d.State.Session == nil {
		return nil
	}
	out := make([]int, len(d.State.Session.Questions))
	for i := range out {
		out[i] = i
	}
	return out
}

// CanAnswer reports whether answer buttons are enabled.
func (d IndexData) CanAnswer() bool {
	st := d.State
	if st.Session == nil || st.Phase == practice.PhaseComplete || st.Paused {
		return false
	}
	if st.Phase == practice.PhaseReviewing {
		return true
	}
	return !d.Answer().Answered() && !st.LivesExhausted
}

// IndexPage renders the practice UI for the current state.
func IndexPage(d IndexData) templ.Component {
	return page("index.html", d)
}

func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := base.Clone()
		if err != nil {
			return err
		}
		return t.Funcs(funcs(ctx)).ExecuteTemplate(w, name, data)
	})
}

// clock formats seconds as MM:SS. Minutes are not wrapped at an hour.
func clock(secs int) string {
	secs = max(secs, 0)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
