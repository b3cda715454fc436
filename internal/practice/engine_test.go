package practice

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSink struct {
	mu      sync.Mutex
	results []model.SessionResult
}

func (r *recordingSink) AddResult(res model.SessionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingSink) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func makeQuestions(n int) []model.Question {
	tags := [][]string{{"scope"}, {"risk", "scope"}, {"quality"}}
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            i + 1,
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       model.Choices{A: "right", B: "wrong", C: "wrong", D: "wrong"},
			CorrectAnswer: model.OptionA,
			Tags:          tags[i%len(tags)],
		}
	}
	return qs
}

type harness struct {
	engine *Engine
	clock  *fakeClock
	sink   *recordingSink
	kv     *store.Memory
}

func newHarness(t *testing.T, poolSize int) *harness {
	t.Helper()
	h := &harness{clock: newFakeClock(), sink: &recordingSink{}, kv: store.NewMemory()}
	h.engine = h.reopen()
	require.NoError(t, h.engine.SetQuestions(makeQuestions(poolSize)))
	t.Cleanup(h.engine.Close)
	return h
}

// reopen builds a fresh engine over the same storage and clock.
func (h *harness) reopen() *Engine {
	cfg := model.DefaultConfig()
	cfg.TickInterval = 0
	return New(cfg, h.kv, h.sink, WithClock(h.clock), WithRand(rand.New(rand.NewPCG(1, 2))))
}

func (h *harness) session(t *testing.T) *model.PracticeSession {
	t.Helper()
	st := h.engine.Snapshot()
	require.NotNil(t, st.Session)
	require.Len(t, st.Session.Answers, len(st.Session.Questions))
	return st.Session
}

func TestStartRequiresPool(t *testing.T) {
	h := newHarness(t, 0)
	assert.False(t, h.engine.Start())
	assert.Equal(t, PhaseIdle, h.engine.Snapshot().Phase)
}

func TestStartSmallPoolKeepsOrder(t *testing.T) {
	for _, n := range []int{1, 5, 20} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			h := newHarness(t, n)
			require.True(t, h.engine.Start())
			s := h.session(t)
			require.Len(t, s.Questions, n)
			for i, q := range s.Questions {
				assert.Equal(t, i+1, q.ID)
				assert.Equal(t, q.ID, s.Answers[i].QuestionID)
				assert.False(t, s.Answers[i].Answered())
			}
			assert.Equal(t, 3, s.Lives)
			assert.Equal(t, 0, s.Streak)
			assert.Equal(t, 0, s.XP)
			assert.Equal(t, 0, s.CurrentIndex)
			assert.Equal(t, 25*time.Minute, s.TimeLimit)
			assert.True(t, s.StartTime.Equal(h.clock.Now()))
		})
	}
}

func TestStartLargePoolSamplesDistinct(t *testing.T) {
	for _, n := range []int{21, 50, 200} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			h := newHarness(t, n)
			require.True(t, h.engine.Start())
			s := h.session(t)
			require.Len(t, s.Questions, 20)
			seen := map[int]bool{}
			for _, q := range s.Questions {
				assert.False(t, seen[q.ID], "duplicate question %d", q.ID)
				assert.True(t, q.ID >= 1 && q.ID <= n)
				seen[q.ID] = true
			}
		})
	}
}

func TestXPForStreak(t *testing.T) {
	tests := []struct {
		streak int
		want   int
	}{
		{1, 10}, {2, 10}, {3, 15}, {4, 15}, {5, 25}, {9, 25}, {10, 45}, {14, 45}, {15, 75}, {20, 75},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, XPForStreak(tt.streak), "streak %d", tt.streak)
	}
}

func TestAnswerScoring(t *testing.T) {
	h := newHarness(t, 20)
	require.True(t, h.engine.Start())

	total := 0
	for i := 1; i <= 10; i++ {
		out := h.engine.Answer(model.OptionA)
		require.True(t, out.Applied)
		assert.True(t, out.Correct)
		assert.Equal(t, i, out.Streak)
		assert.Equal(t, XPForStreak(i), out.XPAwarded)
		total += out.XPAwarded
		h.engine.Next()
	}
	s := h.session(t)
	assert.Equal(t, total, s.XP)
	assert.Equal(t, 10, s.Streak)

	out := h.engine.Answer(model.OptionC)
	assert.True(t, out.Applied)
	assert.False(t, out.Correct)
	assert.Equal(t, 0, out.XPAwarded)
	assert.Equal(t, 0, out.Streak)
	assert.Equal(t, 2, out.Lives)

	s = h.session(t)
	assert.Equal(t, total, s.XP)
	assert.Equal(t, model.OptionC, s.Answers[10].SelectedOption)
	assert.False(t, s.Answers[10].IsCorrect)
}

func TestStreakBonusTransitions(t *testing.T) {
	h := newHarness(t, 20)
	require.True(t, h.engine.Start())

	var awarded []int
	for i := 0; i < 10; i++ {
		awarded = append(awarded, h.engine.Answer(model.OptionA).XPAwarded)
		h.engine.Next()
	}
	// streak 2->3, 4->5 and 9->10
	assert.Equal(t, 15, awarded[2])
	assert.Equal(t, 25, awarded[4])
	assert.Equal(t, 45, awarded[9])
}

func TestMilestones(t *testing.T) {
	h := newHarness(t, 20)
	require.True(t, h.engine.Start())
	got := map[int]int{}
	for i := 1; i <= 20; i++ {
		if m := h.engine.Answer(model.OptionA).Milestone; m != 0 {
			got[i] = m
		}
		h.engine.Next()
	}
	assert.Equal(t, map[int]int{3: 3, 5: 5, 10: 10, 15: 15, 20: 20}, got)
}

func TestAnswerCommitsOnce(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())

	require.True(t, h.engine.Answer(model.OptionB).Applied)
	out := h.engine.Answer(model.OptionA)
	assert.False(t, out.Applied)

	s := h.session(t)
	assert.Equal(t, model.OptionB, s.Answers[0].SelectedOption)
	assert.Equal(t, 2, s.Lives)
	assert.Equal(t, 0, s.XP)
}

func TestAnswerIgnoresInvalidOption(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	assert.False(t, h.engine.Answer(model.Option("E")).Applied)
	assert.False(t, h.session(t).Answers[0].Answered())
}

func TestAnswerWithoutSession(t *testing.T) {
	h := newHarness(t, 5)
	assert.Equal(t, AnswerOutcome{}, h.engine.Answer(model.OptionA))
}

func TestLivesExhausted(t *testing.T) {
	h := newHarness(t, 10)
	require.True(t, h.engine.Start())

	h.engine.Answer(model.OptionA)
	h.engine.Next()
	assert.False(t, h.engine.EnterReviewMode(), "review requires no lives left")

	var out AnswerOutcome
	for i := 0; i < 3; i++ {
		out = h.engine.Answer(model.OptionB)
		h.engine.Next()
	}
	assert.True(t, out.LivesExhausted)
	assert.Equal(t, 0, out.Lives)

	// No further scoring once lives are gone.
	before := h.session(t)
	out = h.engine.Answer(model.OptionA)
	assert.False(t, out.Applied)
	assert.True(t, out.LivesExhausted)
	after := h.session(t)
	assert.Equal(t, before.XP, after.XP)
	assert.Equal(t, before.Streak, after.Streak)
	assert.Equal(t, 0, after.Lives)
	assert.False(t, after.Answers[4].Answered())

	st := h.engine.Snapshot()
	assert.Equal(t, PhaseActive, st.Phase)
	assert.True(t, st.LivesExhausted)
}

func TestReviewMode(t *testing.T) {
	h := newHarness(t, 10)
	require.True(t, h.engine.Start())
	h.engine.Answer(model.OptionA)
	h.engine.Next()
	for i := 0; i < 3; i++ {
		h.engine.Answer(model.OptionB)
		h.engine.Next()
	}
	require.True(t, h.engine.EnterReviewMode())
	assert.Equal(t, PhaseReviewing, h.engine.Snapshot().Phase)
	before := h.session(t)

	out := h.engine.Answer(model.OptionA)
	assert.True(t, out.Applied)
	assert.True(t, out.Review)
	assert.True(t, out.Correct)
	assert.Equal(t, 0, out.XPAwarded)

	// Re-answerable, including already committed questions.
	assert.True(t, h.engine.Answer(model.OptionD).Applied)
	h.engine.Jump(1)
	assert.True(t, h.engine.Answer(model.OptionA).Applied)

	after := h.session(t)
	assert.Equal(t, before.XP, after.XP)
	assert.Equal(t, before.Streak, after.Streak)
	assert.Equal(t, 0, after.Lives)
	assert.Equal(t, model.OptionD, after.Answers[4].ReviewOption)
	assert.False(t, after.Answers[4].Answered())
	assert.Equal(t, model.OptionB, after.Answers[1].SelectedOption, "scored choice is kept")
	assert.Equal(t, model.OptionA, after.Answers[1].ReviewOption)
	assert.Equal(t, before.CorrectCount(), after.CorrectCount())
}

func TestNavigationClamped(t *testing.T) {
	h := newHarness(t, 3)
	require.True(t, h.engine.Start())

	h.engine.Previous()
	assert.Equal(t, 0, h.session(t).CurrentIndex)
	h.engine.Next()
	h.engine.Next()
	h.engine.Next()
	assert.Equal(t, 2, h.session(t).CurrentIndex)
	h.engine.Jump(7)
	assert.Equal(t, 2, h.session(t).CurrentIndex)
	h.engine.Jump(-1)
	assert.Equal(t, 2, h.session(t).CurrentIndex)
	h.engine.Jump(1)
	assert.Equal(t, 1, h.session(t).CurrentIndex)
	h.engine.Previous()
	assert.Equal(t, 0, h.session(t).CurrentIndex)
}

func TestEndRecordsResult(t *testing.T) {
	h := newHarness(t, 20)
	require.True(t, h.engine.Start())

	for i := 0; i < 20; i++ {
		if i < 15 {
			h.engine.Answer(model.OptionA)
		} else if i < 17 {
			h.engine.Answer(model.OptionB)
		}
		h.engine.Next()
	}
	h.clock.Advance(10 * time.Minute)
	h.engine.End()

	require.Equal(t, 1, h.sink.Len())
	r := h.sink.results[0]
	s := h.session(t)
	assert.Equal(t, s.ID, r.ID)
	assert.Equal(t, 75, r.Score)
	assert.Equal(t, 20, r.QuestionsTotal)
	assert.Equal(t, 15, r.QuestionsCorrect)
	assert.Equal(t, 600, r.TimeSpentSeconds)
	assert.Equal(t, s.XP, r.XP)
	assert.Equal(t, 0, r.Streak)
	assert.True(t, s.Complete)
	require.NotNil(t, s.EndTime)
	assert.True(t, s.EndTime.Equal(h.clock.Now()))
	assert.Equal(t, PhaseComplete, h.engine.Snapshot().Phase)

	// Idempotent; completed sessions accept no more changes.
	h.engine.End()
	assert.Equal(t, 1, h.sink.Len())
	assert.False(t, h.engine.Answer(model.OptionA).Applied)
	h.engine.Previous()
	assert.Equal(t, s.CurrentIndex, h.session(t).CurrentIndex)
}

func TestEndRoundsScore(t *testing.T) {
	h := newHarness(t, 3)
	require.True(t, h.engine.Start())
	h.engine.Answer(model.OptionA)
	h.engine.Next()
	h.engine.Answer(model.OptionA)
	h.engine.End()
	require.Equal(t, 1, h.sink.Len())
	assert.Equal(t, 67, h.sink.results[0].Score)
}

func TestEndWithoutSession(t *testing.T) {
	h := newHarness(t, 3)
	h.engine.End()
	assert.Equal(t, 0, h.sink.Len())
}

func TestResetStartsFreshSession(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	first := h.session(t).ID
	h.engine.Answer(model.OptionB)

	require.True(t, h.engine.Reset())
	s := h.session(t)
	assert.NotEqual(t, first, s.ID)
	assert.Equal(t, 3, s.Lives)
	assert.False(t, s.Answers[0].Answered())
	assert.Equal(t, 0, h.sink.Len(), "abandoned session records no result")
}

func TestAnswerRecordsTimeSpent(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	h.clock.Advance(7 * time.Second)
	h.engine.Answer(model.OptionA)
	h.engine.Next()
	h.clock.Advance(3 * time.Second)
	h.engine.Pause()
	h.clock.Advance(time.Minute)
	h.engine.Resume()
	h.clock.Advance(2 * time.Second)
	h.engine.Answer(model.OptionA)

	s := h.session(t)
	assert.Equal(t, 7*time.Second, s.Answers[0].TimeSpent)
	assert.Equal(t, 5*time.Second, s.Answers[1].TimeSpent)
}

func TestTagBreakdown(t *testing.T) {
	h := newHarness(t, 6)
	require.True(t, h.engine.Start())
	// Tags cycle: scope / risk,scope / quality.
	for i := 0; i < 6; i++ {
		if i%2 == 0 {
			h.engine.Answer(model.OptionA)
		} else {
			h.engine.Answer(model.OptionB)
		}
		h.engine.Next()
	}
	got := h.engine.TagBreakdown()
	require.Len(t, got, 3)
	assert.Equal(t, model.TagStat{Tag: "scope", Correct: 2, Total: 4, Percentage: 50}, got[0])
	assert.Equal(t, model.TagStat{Tag: "risk", Correct: 1, Total: 2, Percentage: 50}, got[1])
	assert.Equal(t, model.TagStat{Tag: "quality", Correct: 1, Total: 2, Percentage: 50}, got[2])
}

func TestIncorrectQuestions(t *testing.T) {
	h := newHarness(t, 4)
	require.True(t, h.engine.Start())
	h.engine.Answer(model.OptionA)
	h.engine.Next()
	h.engine.Answer(model.OptionC)

	got := h.engine.IncorrectQuestions()
	ids := make([]int, len(got))
	for i, q := range got {
		ids[i] = q.ID
	}
	assert.Equal(t, []int{2, 3, 4}, ids)
}

func TestSetQuestionsKeepsActiveSession(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	require.NoError(t, h.engine.SetQuestions(makeQuestions(2)))

	assert.Len(t, h.session(t).Questions, 5)
	assert.Len(t, h.engine.Questions(), 2)
	assert.Equal(t, 2, h.engine.Snapshot().PoolSize)
}
