package practice

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/eambriza/pmp-coach/internal/model"
)

// storedSession is the persisted form of a PracticeSession. Instants are
// epoch milliseconds and durations are milliseconds, decoded explicitly.
type storedSession struct {
	ID               string           `json:"id"`
	Questions        []model.Question `json:"questions"`
	Answers          []storedAnswer   `json:"answers"`
	StartMs          int64            `json:"startMs"`
	EndMs            *int64           `json:"endMs,omitempty"`
	TimeLimitSeconds int              `json:"timeLimitSeconds"`
	CurrentIndex     int              `json:"currentIndex"`
	Lives            int              `json:"lives"`
	Streak           int              `json:"streak"`
	XP               int              `json:"xp"`
	Complete         bool             `json:"complete"`
	ReviewMode       bool             `json:"reviewMode"`
	PausedAtMs       *int64           `json:"pausedAtMs,omitempty"`
	PausedForMs      int64            `json:"pausedForMs"`
}

type storedAnswer struct {
	QuestionID     int          `json:"questionId"`
	SelectedOption model.Option `json:"selectedOption,omitempty"`
	IsCorrect      bool         `json:"isCorrect"`
	TimeSpentMs    int64        `json:"timeSpentMs"`
	ReviewOption   model.Option `json:"reviewOption,omitempty"`
}

func msPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

func encodeSession(s *model.PracticeSession) ([]byte, error) {
	st := storedSession{
		ID:               s.ID,
		Questions:        s.Questions,
		Answers:          make([]storedAnswer, len(s.Answers)),
		StartMs:          s.StartTime.UnixMilli(),
		EndMs:            msPtr(s.EndTime),
		TimeLimitSeconds: int(s.TimeLimit / time.Second),
		CurrentIndex:     s.CurrentIndex,
		Lives:            s.Lives,
		Streak:           s.Streak,
		XP:               s.XP,
		Complete:         s.Complete,
		ReviewMode:       s.ReviewMode,
		PausedAtMs:       msPtr(s.PausedAt),
		PausedForMs:      s.PausedFor.Milliseconds(),
	}
	for i, a := range s.Answers {
		st.Answers[i] = storedAnswer{
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      a.IsCorrect,
			TimeSpentMs:    a.TimeSpent.Milliseconds(),
			ReviewOption:   a.ReviewOption,
		}
	}
	return json.Marshal(st)
}

func decodeSession(data []byte) (*model.PracticeSession, error) {
	var st storedSession
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if len(st.Answers) != len(st.Questions) || len(st.Questions) == 0 {
		return nil, fmt.Errorf("decode session: %d answers for %d questions", len(st.Answers), len(st.Questions))
	}
	s := &model.PracticeSession{
		ID:           st.ID,
		Questions:    st.Questions,
		Answers:      make([]model.Answer, len(st.Answers)),
		StartTime:    time.UnixMilli(st.StartMs),
		EndTime:      timePtr(st.EndMs),
		TimeLimit:    time.Duration(st.TimeLimitSeconds) * time.Second,
		CurrentIndex: min(max(st.CurrentIndex, 0), len(st.Questions)-1),
		Lives:        max(st.Lives, 0),
		Streak:       st.Streak,
		XP:           st.XP,
		Complete:     st.Complete,
		ReviewMode:   st.ReviewMode,
		PausedAt:     timePtr(st.PausedAtMs),
		PausedFor:    time.Duration(st.PausedForMs) * time.Millisecond,
	}
	for i, a := range st.Answers {
		s.Answers[i] = model.Answer{
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsCorrect:      a.IsCorrect,
			TimeSpent:      time.Duration(a.TimeSpentMs) * time.Millisecond,
			ReviewOption:   a.ReviewOption,
		}
	}
	return s, nil
}
