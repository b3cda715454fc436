// Package progress keeps the append-only history of completed practice
// sessions and derives aggregate statistics from it.
package progress

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/store"
)

// Store owns the SessionResult history. The history is loaded once and
// written through on every change.
type Store struct {
	kv      store.KV
	mu      sync.Mutex
	results []model.SessionResult
}

// New loads the history from kv. An unreadable history is treated as empty.
func New(kv store.KV) *Store {
	s := &Store{kv: kv}
	data, ok, err := kv.Get(store.KeySessionResults)
	switch {
	case err != nil:
		slog.Warn("failed to read session results", "error", err)
	case ok:
		results, err := decodeResults(data)
		if err != nil {
			slog.Warn("discarding unreadable session results", "error", err)
			break
		}
		s.results = results
	}
	return s
}

// AddResult appends r to the history.
func (s *Store) AddResult(r model.SessionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Stored dates decode as UTC; keep live entries in the same location.
	r.Date = r.Date.UTC()
	s.results = append(s.results, r)
	s.persist()
}

// ClearAll empties the history. Callers confirm with the user first.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
	if err := s.kv.Remove(store.KeySessionResults); err != nil {
		slog.Error("failed to clear session results", "error", err)
	}
}

func (s *Store) persist() {
	data, err := encodeResults(s.results)
	if err != nil {
		slog.Error("failed to encode session results", "error", err)
		return
	}
	if err := s.kv.Set(store.KeySessionResults, data); err != nil {
		slog.Error("failed to save session results", "error", err)
	}
}

// Results returns a copy of the history, oldest first.
func (s *Store) Results() []model.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SessionResult(nil), s.results...)
}

func (s *Store) TotalXP() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, r := range s.results {
		total += r.XP
	}
	return total
}

// AverageScore is the rounded mean score, 0 with no history.
func (s *Store) AverageScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range s.results {
		sum += r.Score
	}
	return int(math.Round(float64(sum) / float64(len(s.results))))
}

func (s *Store) TotalQuestionsAnswered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, r := range s.results {
		total += r.QuestionsTotal
	}
	return total
}

func (s *Store) BestStreak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := 0
	for _, r := range s.results {
		best = max(best, r.Streak)
	}
	return best
}

// Stats gathers all aggregates in one call.
func (s *Store) Stats() model.Stats {
	return model.Stats{
		Sessions:               len(s.Results()),
		TotalXP:                s.TotalXP(),
		AverageScore:           s.AverageScore(),
		TotalQuestionsAnswered: s.TotalQuestionsAnswered(),
		BestStreak:             s.BestStreak(),
	}
}

// RecentScores returns up to n most recent scores, oldest first.
func (s *Store) RecentScores(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return []int{}
	}
	start := max(0, len(s.results)-n)
	scores := make([]int, 0, len(s.results)-start)
	for _, r := range s.results[start:] {
		scores = append(scores, r.Score)
	}
	return scores
}

// Export builds the report printed by `stats --json`.
func (s *Store) Export(generatedAt time.Time, recent int) model.ProgressExport {
	return model.ProgressExport{
		GeneratedAt: generatedAt,
		Stats:       s.Stats(),
		Recent:      s.RecentScores(recent),
		Results:     s.Results(),
	}
}
