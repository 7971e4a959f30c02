package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

// ParseQuestionsXLSX читает вопросы из первого листа книги: вопрос | ответ | метаданные (JSON, необязательно).
// Первая строка считается заголовком, если ее первая ячейка равна "question" или "вопрос".
func ParseQuestionsXLSX(r io.Reader) ([]entity.Question, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", apperrors.ErrValidation)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets: %w", apperrors.ErrValidation)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var questions []entity.Question
	line := 0
	for rows.Next() {
		line++
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if len(cols) == 0 || (len(cols) == 1 && strings.TrimSpace(cols[0]) == "") {
			continue
		}
		if line == 1 && isHeaderCell(cols[0]) {
			continue
		}
		if len(cols) < 2 {
			return nil, fmt.Errorf("row %d: expected question and answer columns: %w", line, apperrors.ErrValidation)
		}

		q := entity.Question{
			Prompt: strings.TrimSpace(cols[0]),
			Answer: strings.TrimSpace(cols[1]),
		}
		if len(cols) > 2 && strings.TrimSpace(cols[2]) != "" {
			var meta entity.Metadata
			if err := json.Unmarshal([]byte(cols[2]), &meta); err != nil {
				return nil, fmt.Errorf("row %d: metadata is not valid JSON: %w", line, apperrors.ErrValidation)
			}
			q.Metadata = meta
		}
		questions = append(questions, q)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return questions, nil
}

func isHeaderCell(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "question" || v == "вопрос"
}
