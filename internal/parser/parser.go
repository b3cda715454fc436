// Package parser converts uploaded question spreadsheets into validated
// questions and writes question sets back out.
package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eambriza/pmp-coach/internal/model"
)

// DefaultMaxInvalid is the number of dropped rows tolerated before an
// upload is rejected.
const DefaultMaxInvalid = 50

// Record is one data row keyed by normalized header name.
type Record map[string]string

// Header aliases, compared after normalizeHeader.
var (
	textKeys        = []string{"question", "questiontext", "text"}
	optionsKeys     = []string{"options", "choices"}
	answerKeys      = []string{"answer", "correctanswer"}
	explanationKeys = []string{"explanation"}
	tagsKeys        = []string{"tags"}
	splitKeys       = map[model.Option][]string{
		model.OptionA: {"optiona", "a", "choicea"},
		model.OptionB: {"optionb", "b", "choiceb"},
		model.OptionC: {"optionc", "c", "choicec"},
		model.OptionD: {"optiond", "d", "choiced"},
	}
)

// Parser turns tabular input into questions.
type Parser struct {
	maxInvalid int
}

// New creates a Parser that rejects input with more than maxInvalid
// dropped rows. A non-positive value selects DefaultMaxInvalid.
func New(maxInvalid int) *Parser {
	if maxInvalid <= 0 {
		maxInvalid = DefaultMaxInvalid
	}
	return &Parser{maxInvalid: maxInvalid}
}

// Parse reads a .csv or .xlsx file and returns its valid questions in row
// order. It returns a *FormatError for unsupported or unreadable input and
// a *ValidationError when too few rows are usable.
func (p *Parser) Parse(filename string, r io.Reader) ([]model.Question, error) {
	var (
		records []Record
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		records, err = readCSV(filename, r)
	case ".xlsx":
		records, err = readXLSX(filename, r)
	default:
		return nil, newFormatError(filename,
			fmt.Sprintf("unsupported file format %q: upload .csv or .xlsx files", ext), nil)
	}
	if err != nil {
		return nil, err
	}

	questions, err := p.ParseRecords(records)
	if err != nil {
		return nil, err
	}
	slog.Info("parsed question file", "file", filename, "rows", len(records), "questions", len(questions))
	return questions, nil
}

// ParseRecords maps rows to questions, dropping invalid rows. IDs are the
// 1-based position in the returned slice.
func (p *Parser) ParseRecords(records []Record) ([]model.Question, error) {
	var questions []model.Question
	invalid := 0
	for _, rec := range records {
		q, ok := recordToQuestion(rec)
		if !ok {
			invalid++
			continue
		}
		q.ID = len(questions) + 1
		questions = append(questions, q)
	}

	if invalid > p.maxInvalid {
		return nil, &ValidationError{
			Reason:  fmt.Sprintf("too many invalid rows: %d rows are missing question text, options or a valid answer (more than %d)", invalid, p.maxInvalid),
			Invalid: invalid,
			Valid:   len(questions),
			Kind:    ErrTooManyInvalid,
		}
	}
	if len(questions) == 0 {
		return nil, &ValidationError{
			Reason:  "no valid questions found in the file",
			Invalid: invalid,
			Kind:    ErrNoValidQuestions,
		}
	}
	if invalid > 0 {
		slog.Warn("skipped invalid rows", "skipped", invalid, "loaded", len(questions))
	}
	return questions, nil
}

// recordToQuestion applies the combined-options layout when the row has a
// non-empty options cell and the split-column layout otherwise.
func recordToQuestion(rec Record) (model.Question, bool) {
	q := model.Question{
		Text:        rec.first(textKeys),
		Explanation: rec.first(explanationKeys),
		Tags:        splitTags(rec.first(tagsKeys)),
	}

	if combined := rec.first(optionsKeys); combined != "" {
		q.Options = parseOptionsField(combined)
	} else {
		for _, o := range model.AllOptions {
			q.Options.Set(o, rec.first(splitKeys[o]))
		}
	}

	answer, ok := model.ParseOption(rec.first(answerKeys))
	if !ok || q.Text == "" || !q.Options.Complete() {
		return model.Question{}, false
	}
	q.CorrectAnswer = answer
	return q, true
}

func (r Record) first(keys []string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// normalizeHeader lowercases a header and drops spaces, underscores and
// hyphens so "Correct Answer", "correct_answer" and "correctAnswer" match.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// toRecords pairs each data row with the header row. Rows whose cells are
// all blank are skipped without counting as invalid.
func toRecords(rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = normalizeHeader(h)
	}

	var records []Record
	for _, row := range rows[1:] {
		rec := make(Record, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v != "" {
				blank = false
			}
			if _, seen := rec[h]; !seen || rec[h] == "" {
				rec[h] = v
			}
		}
		if !blank {
			records = append(records, rec)
		}
	}
	return records
}

func readCSV(filename string, r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, newFormatError(filename, "failed to read CSV", err)
	}
	return toRecords(rows), nil
}

func readXLSX(filename string, r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, newFormatError(filename, "failed to open Excel file", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newFormatError(filename, "Excel file has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, newFormatError(filename, "failed to read Excel rows", err)
	}
	return toRecords(rows), nil
}
