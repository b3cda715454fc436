package store

import (
	"encoding/json"
	"fmt"

	"github.com/eambriza/pmp-coach/internal/model"
)

// KV is the synchronous storage boundary: get/set/remove opaque values by key.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// QuestionSet persists the currently available questions under KeyQuestions.
type QuestionSet struct {
	kv KV
}

func NewQuestionSet(kv KV) *QuestionSet {
	return &QuestionSet{kv: kv}
}

// Load returns the stored questions, or nil if none were imported.
func (q *QuestionSet) Load() ([]model.Question, error) {
	data, ok, err := q.kv.Get(KeyQuestions)
	if err != nil || !ok {
		return nil, err
	}
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return questions, nil
}

// Replace stores questions as the new available set.
func (q *QuestionSet) Replace(questions []model.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	return q.kv.Set(KeyQuestions, data)
}
