package qbank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RowError reports a CSV row that could not be turned into a question.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ErrMissingColumn is returned when a required column has no synonym in
// the header row.
var ErrMissingColumn = errors.New("missing required column")

var requiredFields = []Field{
	FieldID, FieldText, FieldOptionA, FieldOptionB, FieldOptionC, FieldOptionD, FieldCorrect,
}

// ReadCSV parses a question spreadsheet. Headers are mapped through the
// synonym table; unknown columns are ignored. The first invalid row
// aborts the read.
func ReadCSV(r io.Reader) ([]Question, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	present := make(map[Field]bool)
	for _, h := range header {
		if f, ok := CanonicalField(h); ok {
			present[f] = true
		}
	}
	for _, f := range requiredFields {
		if !present[f] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, f)
		}
	}

	var questions []Question
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blankRecord(record) {
			continue
		}

		rec := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				rec[h] = record[i]
			}
		}

		q, err := questionFromRecord(rec)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func questionFromRecord(rec map[string]string) (Question, error) {
	idStr := Coalesce(rec, FieldID)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Question{}, fmt.Errorf("%w: id %q", ErrInvalidQuestion, idStr)
	}

	correct, err := ParseOptionID(Coalesce(rec, FieldCorrect))
	if err != nil {
		return Question{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}

	q := Question{
		ID:      id,
		Exam:    NormalizeFacet(Coalesce(rec, FieldExam)),
		Subject: NormalizeFacet(Coalesce(rec, FieldSubject)),
		Label:   Coalesce(rec, FieldLabel),
		Text:    Coalesce(rec, FieldText),
		Options: NewOptions(
			Coalesce(rec, FieldOptionA),
			Coalesce(rec, FieldOptionB),
			Coalesce(rec, FieldOptionC),
			Coalesce(rec, FieldOptionD),
		),
		Correct: correct,
		Source:  NormalizeFacet(Coalesce(rec, FieldSource)),
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes questions with the canonical header row.
func WriteCSV(w io.Writer, questions []Question) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(CanonicalFields))
	for i, f := range CanonicalFields {
		header[i] = string(f)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, q := range questions {
		row := []string{
			strconv.FormatInt(q.ID, 10),
			q.Exam,
			q.Subject,
			q.Label,
			q.Text,
			q.Options[0].Text,
			q.Options[1].Text,
			q.Options[2].Text,
			q.Options[3].Text,
			string(q.Correct),
			q.Source,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write question %d: %w", q.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
