package model

import (
	"strings"
	"time"
)

// Option identifies one of the four answer choices.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// AllOptions lists the answer letters in display order.
var AllOptions = []Option{OptionA, OptionB, OptionC, OptionD}

// ParseOption normalizes s to an answer letter. Surrounding whitespace,
// lower case and a trailing "." or ")" are accepted ("b", " C. ", "d)").
func ParseOption(s string) (Option, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".)")
	switch Option(s) {
	case OptionA, OptionB, OptionC, OptionD:
		return Option(s), true
	}
	return "", false
}

// Valid reports whether o is one of A-D.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Choices holds the text of the four answer options.
type Choices struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Get returns the text for option o.
func (c Choices) Get(o Option) string {
	switch o {
	case OptionA:
		return c.A
	case OptionB:
		return c.B
	case OptionC:
		return c.C
	case OptionD:
		return c.D
	}
	return ""
}

// Set stores text for option o. Unknown options are ignored.
func (c *Choices) Set(o Option, text string) {
	switch o {
	case OptionA:
		c.A = text
	case OptionB:
		c.B = text
	case OptionC:
		c.C = text
	case OptionD:
		c.D = text
	}
}

// Complete reports whether all four options carry text.
func (c Choices) Complete() bool {
	return c.A != "" && c.B != "" && c.C != "" && c.D != ""
}

// Question is a parsed multiple-choice question. It is never mutated after
// parsing; sessions and views share the same values.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"question"`
	Options       Choices  `json:"options"`
	CorrectAnswer Option   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Tags          []string `json:"tags"`
}

// Answer records the learner's response to one session question.
type Answer struct {
	QuestionID     int           `json:"questionId"`
	SelectedOption Option        `json:"selectedOption,omitempty"`
	IsCorrect      bool          `json:"isCorrect"`
	TimeSpent      time.Duration `json:"timeSpent"`
	// ReviewOption is the latest choice made in review mode. It never
	// affects scoring.
	ReviewOption Option `json:"reviewOption,omitempty"`
}

// Answered reports whether a scored choice has been committed.
func (a Answer) Answered() bool {
	return a.SelectedOption != ""
}

// PracticeSession is one bounded practice attempt.
type PracticeSession struct {
	ID           string        `json:"id"`
	Questions    []Question    `json:"questions"`
	Answers      []Answer      `json:"answers"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      *time.Time    `json:"endTime,omitempty"`
	TimeLimit    time.Duration `json:"timeLimit"`
	CurrentIndex int           `json:"currentIndex"`
	Lives        int           `json:"lives"`
	Streak       int           `json:"streak"`
	XP           int           `json:"xp"`
	Complete     bool          `json:"complete"`
	ReviewMode   bool          `json:"reviewMode"`
	// PausedAt is set while the countdown is frozen.
	PausedAt *time.Time `json:"pausedAt,omitempty"`
	// PausedFor accumulates completed pause intervals.
	PausedFor time.Duration `json:"pausedFor"`
}

// CorrectCount returns the number of correctly answered questions.
func (s *PracticeSession) CorrectCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// SessionResult summarizes a completed session for the progress history.
type SessionResult struct {
	ID               string    `json:"id"`
	Date             time.Time `json:"date"`
	Score            int       `json:"score"`
	QuestionsTotal   int       `json:"questionsTotal"`
	QuestionsCorrect int       `json:"questionsCorrect"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	XP               int       `json:"xp"`
	Streak           int       `json:"streak"`
}

// Stats are aggregates derived from the full result history.
type Stats struct {
	Sessions               int `json:"sessions"`
	TotalXP                int `json:"totalXp"`
	AverageScore           int `json:"averageScore"`
	TotalQuestionsAnswered int `json:"totalQuestionsAnswered"`
	BestStreak             int `json:"bestStreak"`
}

// TagStat is the per-tag breakdown shown on the results view.
type TagStat struct {
	Tag        string `json:"tag"`
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// Config holds runtime practice parameters set via CLI flags.
type Config struct {
	SessionSize    int           // questions sampled per session
	TimeLimit      time.Duration // session countdown
	StartingLives  int
	MaxInvalidRows int           // parse fails when more rows than this are dropped
	TickInterval   time.Duration // 0 disables the background countdown
}

// DefaultConfig returns the standard practice parameters.
func DefaultConfig() Config {
	return Config{
		SessionSize:    20,
		TimeLimit:      25 * time.Minute,
		StartingLives:  3,
		MaxInvalidRows: 50,
		TickInterval:   time.Second,
	}
}
