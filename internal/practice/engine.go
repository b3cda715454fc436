// Package practice runs timed practice sessions over the imported question
// pool: sampling, scoring with streak bonuses, lives, navigation, review
// mode and the countdown.
package practice

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/store"
)

// ResultSink receives the result of every completed session.
type ResultSink interface {
	AddResult(model.SessionResult)
}

// Phase is the externally visible engine state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseActive    Phase = "active"
	PhaseReviewing Phase = "reviewing"
	PhaseComplete  Phase = "complete"
)

// Engine owns the single active practice session. All methods are safe
// for concurrent use.
type Engine struct {
	cfg       model.Config
	kv        store.KV
	questions *store.QuestionSet
	results   ResultSink
	clock     Clock
	rng       *rand.Rand

	mu       sync.Mutex
	pool     []model.Question
	session  *model.PracticeSession
	shownAt  time.Time
	stopTick context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand sets the random source used for sampling.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func New(cfg model.Config, kv store.KV, results ResultSink, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		kv:        kv,
		questions: store.NewQuestionSet(kv),
		results:   results,
		clock:     systemClock{},
	}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return e
}

// Restore loads the question pool and any stored session. A session whose
// countdown ran out while the process was down is finalized now. Unreadable
// state is discarded.
func (e *Engine) Restore() {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.questions.Load()
	if err != nil {
		slog.Warn("discarding stored questions", "error", err)
	}
	e.pool = pool

	data, ok, err := e.kv.Get(store.KeyCurrentSession)
	if err != nil {
		slog.Warn("failed to read current session", "error", err)
		return
	}
	if !ok {
		return
	}
	s, err := decodeSession(data)
	if err != nil {
		slog.Warn("discarding stored session", "error", err)
		return
	}
	e.session = s
	e.shownAt = e.clock.Now()
	if s.Complete {
		return
	}
	if s.PausedAt == nil && e.remainingLocked() == 0 {
		slog.Info("session expired while stopped", "session", s.ID)
		e.endLocked()
		return
	}
	e.startTickerLocked()
	slog.Info("restored session", "session", s.ID, "remaining", e.remainingLocked())
}

// SetQuestions replaces the available pool. The active session keeps its
// own questions.
func (e *Engine) SetQuestions(qs []model.Question) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pool = qs
	return e.questions.Replace(qs)
}

// Questions returns the available pool.
func (e *Engine) Questions() []model.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool
}

// Start samples a new session from the pool, replacing any existing one.
// It reports false when the pool is empty.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pool) == 0 {
		return false
	}
	e.stopTickerLocked()

	qs := e.sample()
	answers := make([]model.Answer, len(qs))
	for i, q := range qs {
		answers[i] = model.Answer{QuestionID: q.ID}
	}
	now := e.clock.Now()
	e.session = &model.PracticeSession{
		ID:        uuid.NewString(),
		Questions: qs,
		Answers:   answers,
		StartTime: now,
		TimeLimit: e.cfg.TimeLimit,
		Lives:     e.cfg.StartingLives,
	}
	e.shownAt = now
	e.persistLocked()
	e.startTickerLocked()
	slog.Info("session started", "session", e.session.ID, "questions", len(qs))
	return true
}

// Reset abandons the current session and starts a fresh one.
func (e *Engine) Reset() bool {
	return e.Start()
}

// sample returns the whole pool in order when it fits in a session,
// otherwise a uniform sample without replacement.
func (e *Engine) sample() []model.Question {
	size := e.cfg.SessionSize
	if len(e.pool) <= size {
		return append([]model.Question(nil), e.pool...)
	}
	qs := append([]model.Question(nil), e.pool...)
	e.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	return qs[:size]
}

// AnswerOutcome describes the effect of an Answer call.
type AnswerOutcome struct {
	Applied        bool `json:"applied"`
	Review         bool `json:"review"`
	Correct        bool `json:"correct"`
	XPAwarded      int  `json:"xpAwarded"`
	Streak         int  `json:"streak"`
	Lives          int  `json:"lives"`
	LivesExhausted bool `json:"livesExhausted"`
	// Milestone is the streak value when it just reached 3, 5, 10, 15 or 20.
	Milestone int `json:"milestone,omitempty"`
}

var milestones = []int{3, 5, 10, 15, 20}

// XPForStreak is the XP awarded for a correct answer that brings the
// streak to streak.
func XPForStreak(streak int) int {
	xp := 10
	if streak >= 3 {
		xp += 5
	}
	if streak >= 5 {
		xp += 10
	}
	if streak >= 10 {
		xp += 20
	}
	if streak >= 15 {
		xp += 30
	}
	return xp
}

// Answer commits option for the current question. In review mode the
// choice is recorded without touching score, lives, streak or XP.
func (e *Engine) Answer(option model.Option) AnswerOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil || s.Complete || !option.Valid() {
		return AnswerOutcome{}
	}
	a := &s.Answers[s.CurrentIndex]
	q := s.Questions[s.CurrentIndex]

	if s.ReviewMode {
		a.ReviewOption = option
		e.persistLocked()
		return AnswerOutcome{
			Applied: true,
			Review:  true,
			Correct: option == q.CorrectAnswer,
			Streak:  s.Streak,
			Lives:   s.Lives,
		}
	}
	if a.Answered() || s.Lives == 0 {
		return AnswerOutcome{Lives: s.Lives, Streak: s.Streak, LivesExhausted: s.Lives == 0}
	}

	now := e.clock.Now()
	a.SelectedOption = option
	a.IsCorrect = option == q.CorrectAnswer
	a.TimeSpent = max(now.Sub(e.shownAt), 0)

	out := AnswerOutcome{Applied: true, Correct: a.IsCorrect}
	if a.IsCorrect {
		s.Streak++
		out.XPAwarded = XPForStreak(s.Streak)
		s.XP += out.XPAwarded
		for _, m := range milestones {
			if s.Streak == m {
				out.Milestone = m
			}
		}
	} else {
		s.Streak = 0
		s.Lives--
	}
	out.Streak = s.Streak
	out.Lives = s.Lives
	out.LivesExhausted = s.Lives == 0
	e.persistLocked()
	return out
}

// EnterReviewMode switches a session with no lives left into scoreless
// practice. It reports whether the switch happened.
func (e *Engine) EnterReviewMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil || s.Complete || s.Lives > 0 {
		return false
	}
	if !s.ReviewMode {
		s.ReviewMode = true
		e.persistLocked()
	}
	return true
}

// Next moves to the following question. Moves past the end are ignored.
func (e *Engine) Next() { e.move(func(i int) int { return i + 1 }) }

// Previous moves to the preceding question.
func (e *Engine) Previous() { e.move(func(i int) int { return i - 1 }) }

// Jump moves to question i.
func (e *Engine) Jump(i int) { e.move(func(int) int { return i }) }

func (e *Engine) move(to func(int) int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil || s.Complete {
		return
	}
	i := to(s.CurrentIndex)
	if i < 0 || i >= len(s.Questions) || i == s.CurrentIndex {
		return
	}
	s.CurrentIndex = i
	e.shownAt = e.clock.Now()
	e.persistLocked()
}

// Pause freezes the countdown.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil || s.Complete || s.PausedAt != nil {
		return
	}
	now := e.clock.Now()
	s.PausedAt = &now
	e.persistLocked()
}

// Resume restarts a paused countdown from where it stopped.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil || s.Complete || s.PausedAt == nil {
		return
	}
	paused := max(e.clock.Now().Sub(*s.PausedAt), 0)
	s.PausedFor += paused
	s.PausedAt = nil
	e.shownAt = e.shownAt.Add(paused)
	e.persistLocked()
}

// End finalizes the session and records its result. It is a no-op when
// there is no session or it already ended.
func (e *Engine) End() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endLocked()
}

func (e *Engine) endLocked() {
	s := e.session
	if s == nil || s.Complete {
		return
	}
	e.stopTickerLocked()
	now := e.clock.Now()
	if s.PausedAt != nil {
		s.PausedFor += max(now.Sub(*s.PausedAt), 0)
		s.PausedAt = nil
	}
	remaining := e.remainingLocked()
	s.EndTime = &now
	s.Complete = true
	s.ReviewMode = false

	total := len(s.Questions)
	correct := s.CorrectCount()
	score := int(math.Round(100 * float64(correct) / float64(total)))
	result := model.SessionResult{
		ID:               s.ID,
		Date:             now,
		Score:            score,
		QuestionsTotal:   total,
		QuestionsCorrect: correct,
		TimeSpentSeconds: seconds(s.TimeLimit) - seconds(remaining),
		XP:               s.XP,
		Streak:           s.Streak,
	}
	e.persistLocked()
	if e.results != nil {
		e.results.AddResult(result)
	}
	slog.Info("session ended", "session", s.ID, "score", score, "correct", correct, "total", total, "xp", s.XP)
}

func (e *Engine) persistLocked() {
	data, err := encodeSession(e.session)
	if err != nil {
		slog.Error("failed to encode session", "error", err)
		return
	}
	if err := e.kv.Set(store.KeyCurrentSession, data); err != nil {
		slog.Error("failed to save session", "error", err)
	}
}

// State is a read-only snapshot for presentation.
type State struct {
	Phase            Phase                  `json:"phase"`
	Session          *model.PracticeSession `json:"session,omitempty"`
	RemainingSeconds int                    `json:"remainingSeconds"`
	Paused           bool                   `json:"paused"`
	LivesExhausted   bool                   `json:"livesExhausted"`
	PoolSize         int                    `json:"poolSize"`
}

// Snapshot returns the current state. The returned session is a copy.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{Phase: PhaseIdle, PoolSize: len(e.pool)}
	s := e.session
	if s == nil {
		return st
	}
	cp := *s
	cp.Answers = append([]model.Answer(nil), s.Answers...)
	st.Session = &cp
	st.RemainingSeconds = seconds(e.remainingLocked())
	st.Paused = s.PausedAt != nil
	st.LivesExhausted = s.Lives == 0
	switch {
	case s.Complete:
		st.Phase = PhaseComplete
	case s.ReviewMode:
		st.Phase = PhaseReviewing
	default:
		st.Phase = PhaseActive
	}
	return st
}
