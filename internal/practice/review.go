package practice

import (
	"math"
	"slices"

	"github.com/eambriza/pmp-coach/internal/model"
)

// TagBreakdown groups the session's answers by tag, most frequent tag
// first. Ties keep first-seen order.
func (e *Engine) TagBreakdown() []model.TagStat {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil {
		return nil
	}
	index := make(map[string]int)
	var stats []model.TagStat
	for i, q := range s.Questions {
		for _, tag := range q.Tags {
			j, ok := index[tag]
			if !ok {
				j = len(stats)
				index[tag] = j
				stats = append(stats, model.TagStat{Tag: tag})
			}
			stats[j].Total++
			if s.Answers[i].IsCorrect {
				stats[j].Correct++
			}
		}
	}
	for i := range stats {
		stats[i].Percentage = int(math.Round(100 * float64(stats[i].Correct) / float64(stats[i].Total)))
	}
	slices.SortStableFunc(stats, func(a, b model.TagStat) int { return b.Total - a.Total })
	return stats
}

// IncorrectQuestions returns the session questions not answered correctly,
// unanswered ones included.
func (e *Engine) IncorrectQuestions() []model.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil {
		return nil
	}
	var out []model.Question
	for i, q := range s.Questions {
		if !s.Answers[i].IsCorrect {
			out = append(out, q)
		}
	}
	return out
}
