package practice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/store"
)

func TestRemainingCountsDown(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	assert.Equal(t, 25*time.Minute, h.engine.Remaining())

	h.clock.Advance(90 * time.Second)
	assert.Equal(t, 1410, h.engine.Snapshot().RemainingSeconds)

	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 1410, h.engine.Snapshot().RemainingSeconds, "partial seconds round up")
}

func TestTimerExpiryEndsOnce(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())

	h.clock.Advance(25*time.Minute - time.Second)
	assert.False(t, h.engine.Tick())
	assert.Equal(t, 0, h.sink.Len())

	h.clock.Advance(time.Second)
	assert.True(t, h.engine.Tick())
	for i := 0; i < 5; i++ {
		h.clock.Advance(time.Second)
		assert.False(t, h.engine.Tick())
	}
	h.engine.End()

	require.Equal(t, 1, h.sink.Len())
	assert.Equal(t, 1500, h.sink.results[0].TimeSpentSeconds)
	assert.Equal(t, PhaseComplete, h.engine.Snapshot().Phase)
	assert.Equal(t, 0, h.engine.Snapshot().RemainingSeconds)
}

func TestTickWithoutSession(t *testing.T) {
	h := newHarness(t, 5)
	assert.False(t, h.engine.Tick())
}

func TestPauseFreezesCountdown(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())

	h.clock.Advance(5 * time.Minute)
	h.engine.Pause()
	assert.True(t, h.engine.Snapshot().Paused)

	h.clock.Advance(time.Hour)
	assert.Equal(t, 20*time.Minute, h.engine.Remaining())
	assert.False(t, h.engine.Tick(), "paused sessions never expire")
	assert.Equal(t, 0, h.sink.Len())

	h.engine.Resume()
	assert.False(t, h.engine.Snapshot().Paused)
	assert.Equal(t, 20*time.Minute, h.engine.Remaining())

	h.clock.Advance(20 * time.Minute)
	assert.True(t, h.engine.Tick())
	require.Equal(t, 1, h.sink.Len())
	assert.Equal(t, 1500, h.sink.results[0].TimeSpentSeconds)
}

func TestEndWhilePaused(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	h.clock.Advance(2 * time.Minute)
	h.engine.Pause()
	h.clock.Advance(10 * time.Minute)
	h.engine.End()

	require.Equal(t, 1, h.sink.Len())
	assert.Equal(t, 120, h.sink.results[0].TimeSpentSeconds)
}

func TestRestoreRecomputesRemaining(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	h.engine.Answer(model.OptionA)
	id := h.session(t).ID
	h.clock.Advance(5 * time.Minute)

	restored := h.reopen()
	restored.Restore()
	st := restored.Snapshot()
	require.NotNil(t, st.Session)
	assert.Equal(t, id, st.Session.ID)
	assert.Equal(t, PhaseActive, st.Phase)
	assert.Equal(t, 1200, st.RemainingSeconds)
	assert.Equal(t, 10, st.Session.XP)
	assert.Equal(t, model.OptionA, st.Session.Answers[0].SelectedOption)
	assert.Len(t, restored.Questions(), 5)
}

func TestRestorePausedSession(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	h.clock.Advance(5 * time.Minute)
	h.engine.Pause()
	h.clock.Advance(3 * time.Hour)

	restored := h.reopen()
	restored.Restore()
	st := restored.Snapshot()
	assert.Equal(t, PhaseActive, st.Phase)
	assert.True(t, st.Paused)
	assert.Equal(t, 1200, st.RemainingSeconds)

	restored.Resume()
	h.clock.Advance(time.Minute)
	assert.Equal(t, 19*time.Minute, restored.Remaining())
}

func TestRestoreExpiredSessionEnds(t *testing.T) {
	h := newHarness(t, 5)
	require.True(t, h.engine.Start())
	h.clock.Advance(40 * time.Minute)

	restored := h.reopen()
	restored.Restore()
	assert.Equal(t, PhaseComplete, restored.Snapshot().Phase)
	require.Equal(t, 1, h.sink.Len())
	assert.Equal(t, 1500, h.sink.results[0].TimeSpentSeconds)

	// A finished session is not finalized again on the next load.
	again := h.reopen()
	again.Restore()
	assert.Equal(t, PhaseComplete, again.Snapshot().Phase)
	assert.Equal(t, 1, h.sink.Len())
}

func TestRestoreDiscardsCorruptState(t *testing.T) {
	h := newHarness(t, 5)
	require.NoError(t, h.kv.Set(store.KeyCurrentSession, []byte(`{"questions":[],"answers":[{}]}`)))

	restored := h.reopen()
	restored.Restore()
	assert.Equal(t, PhaseIdle, restored.Snapshot().Phase)
	assert.Len(t, restored.Questions(), 5)
}

func TestBackgroundTickerEndsSession(t *testing.T) {
	clock := newFakeClock()
	sink := &recordingSink{}
	cfg := model.DefaultConfig()
	cfg.TickInterval = 5 * time.Millisecond
	e := New(cfg, store.NewMemory(), sink, WithClock(clock))
	t.Cleanup(e.Close)
	require.NoError(t, e.SetQuestions(makeQuestions(3)))
	require.True(t, e.Start())

	clock.Advance(26 * time.Minute)
	assert.Eventually(t, func() bool {
		return e.Snapshot().Phase == PhaseComplete
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, sink.Len())
}

func TestReplacingSessionStopsOldTicker(t *testing.T) {
	clock := newFakeClock()
	sink := &recordingSink{}
	cfg := model.DefaultConfig()
	cfg.TickInterval = 5 * time.Millisecond
	e := New(cfg, store.NewMemory(), sink, WithClock(clock))
	t.Cleanup(e.Close)
	require.NoError(t, e.SetQuestions(makeQuestions(3)))
	require.True(t, e.Start())
	clock.Advance(24 * time.Minute)
	require.True(t, e.Reset())
	clock.Advance(2 * time.Minute)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sink.Len())
	assert.Equal(t, PhaseActive, e.Snapshot().Phase)
}

func TestRepeatedRestoreKeepsOneTicker(t *testing.T) {
	clock := newFakeClock()
	kv := store.NewMemory()
	cfg := model.DefaultConfig()
	cfg.TickInterval = 5 * time.Millisecond

	first := New(cfg, kv, &recordingSink{}, WithClock(clock))
	require.NoError(t, first.SetQuestions(makeQuestions(3)))
	require.True(t, first.Start())
	first.Close()

	sink := &recordingSink{}
	e := New(cfg, kv, sink, WithClock(clock))
	e.Restore()
	e.Restore()
	e.Close()

	clock.Advance(26 * time.Minute)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sink.Len(), "no ticker may outlive Close")
	assert.Equal(t, PhaseActive, e.Snapshot().Phase)
}
