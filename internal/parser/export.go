package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eambriza/pmp-coach/internal/model"
)

// IncorrectExportFilename is the suggested name for exporting the questions
// answered incorrectly in a session.
const IncorrectExportFilename = "pmp-incorrect-questions.csv"

const exportSheet = "Questions"

// ExportHeaders are the columns written by WriteCSV and WriteXLSX.
var ExportHeaders = []string{
	"question", "optionA", "optionB", "optionC", "optionD", "correctAnswer", "explanation", "tags",
}

func exportRow(q model.Question) []string {
	return []string{
		q.Text,
		q.Options.A,
		q.Options.B,
		q.Options.C,
		q.Options.D,
		string(q.CorrectAnswer),
		q.Explanation,
		strings.Join(q.Tags, ","),
	}
}

// WriteCSV writes questions as comma-separated text: one header row, then
// one row per question with every value double-quoted and embedded quotes
// doubled. Rows are separated by "\n".
func WriteCSV(w io.Writer, questions []model.Question) error {
	lines := make([]string, 0, len(questions)+1)
	lines = append(lines, strings.Join(ExportHeaders, ","))
	for _, q := range questions {
		row := exportRow(q)
		for i, v := range row {
			row[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}
		lines = append(lines, strings.Join(row, ","))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}

// WriteXLSX writes questions to a single-sheet workbook with the same
// columns as WriteCSV.
func WriteXLSX(w io.Writer, questions []model.Question) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ExportHeaders))
	for i, h := range ExportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, q := range questions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := exportRow(q)
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write Excel file: %w", err)
	}
	return nil
}
