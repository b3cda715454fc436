package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eambriza/pmp-coach/internal/model"
)

// storedResult is the on-disk form of a SessionResult. Dates are epoch
// milliseconds.
type storedResult struct {
	ID               string `json:"id"`
	DateMs           int64  `json:"dateMs"`
	Score            int    `json:"score"`
	QuestionsTotal   int    `json:"questionsTotal"`
	QuestionsCorrect int    `json:"questionsCorrect"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
	XP               int    `json:"xp"`
	Streak           int    `json:"streak"`
}

func encodeResults(results []model.SessionResult) ([]byte, error) {
	stored := make([]storedResult, len(results))
	for i, r := range results {
		stored[i] = storedResult{
			ID:               r.ID,
			DateMs:           r.Date.UnixMilli(),
			Score:            r.Score,
			QuestionsTotal:   r.QuestionsTotal,
			QuestionsCorrect: r.QuestionsCorrect,
			TimeSpentSeconds: r.TimeSpentSeconds,
			XP:               r.XP,
			Streak:           r.Streak,
		}
	}
	return json.Marshal(stored)
}

func decodeResults(data []byte) ([]model.SessionResult, error) {
	var stored []storedResult
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode session results: %w", err)
	}
	results := make([]model.SessionResult, len(stored))
	for i, s := range stored {
		results[i] = model.SessionResult{
			ID:               s.ID,
			Date:             time.UnixMilli(s.DateMs).UTC(),
			Score:            s.Score,
			QuestionsTotal:   s.QuestionsTotal,
			QuestionsCorrect: s.QuestionsCorrect,
			TimeSpentSeconds: s.TimeSpentSeconds,
			XP:               s.XP,
			Streak:           s.Streak,
		}
	}
	return results, nil
}
