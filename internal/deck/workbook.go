package deck

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// QuizSheet is the worksheet holding the quiz bank.
const QuizSheet = "Quizzes"

// Columns before the variable-length option list.
var quizHeader = []string{"slide_id", "quiz_id", "question", "correct_option", "explanation"}

// WriteQuizWorkbook writes every quiz of the deck to an xlsx workbook, one
// row per quiz. correct_option is 1-based to match how authors count.
func WriteQuizWorkbook(w io.Writer, d *Deck) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(QuizSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	maxOptions := 0
	for _, s := range d.Slides {
		for _, q := range s.Quizzes {
			maxOptions = max(maxOptions, len(q.Options))
		}
	}

	header := make([]any, 0, len(quizHeader)+maxOptions)
	for _, h := range quizHeader {
		header = append(header, h)
	}
	for i := range maxOptions {
		header = append(header, fmt.Sprintf("option_%d", i+1))
	}
	if err := f.SetSheetRow(QuizSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, s := range d.Slides {
		for _, q := range s.Quizzes {
			values := []any{s.ID, q.ID, q.Question, q.CorrectAnswer + 1, q.Explanation}
			for _, o := range q.Options {
				values = append(values, o)
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(QuizSheet, cell, &values); err != nil {
				return fmt.Errorf("write quiz %s: %w", q.ID, err)
			}
			row++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ApplyQuizWorkbook returns a copy of d whose quizzes are replaced by the
// ones in the workbook. Only slides named in the workbook are touched; the
// result is validated. It also reports how many quizzes were read.
func ApplyQuizWorkbook(d *Deck, r io.Reader) (*Deck, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(QuizSheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s sheet: %w", QuizSheet, err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%w: %s sheet is empty", ErrInvalidDeck, QuizSheet)
	}

	bySlide := make(map[int][]QuizQuestion)
	count := 0
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		slideID, q, err := parseQuizRow(row)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: row %d: %v", ErrInvalidDeck, i+2, err)
		}
		bySlide[slideID] = append(bySlide[slideID], q)
		count++
	}

	out := *d
	out.Slides = make([]Slide, len(d.Slides))
	copy(out.Slides, d.Slides)

	matched := 0
	for i := range out.Slides {
		if qs, ok := bySlide[out.Slides[i].ID]; ok {
			out.Slides[i].Quizzes = qs
			matched++
		}
	}
	if matched != len(bySlide) {
		return nil, 0, fmt.Errorf("%w: workbook names slides missing from deck %s", ErrInvalidDeck, d.ID)
	}
	if err := out.Validate(); err != nil {
		return nil, 0, err
	}
	return &out, count, nil
}

func parseQuizRow(row []string) (int, QuizQuestion, error) {
	if len(row) < len(quizHeader)+2 {
		return 0, QuizQuestion{}, fmt.Errorf("want at least %d columns, got %d", len(quizHeader)+2, len(row))
	}
	slideID, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return 0, QuizQuestion{}, fmt.Errorf("slide_id %q: %v", row[0], err)
	}
	correct, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil {
		return 0, QuizQuestion{}, fmt.Errorf("correct_option %q: %v", row[3], err)
	}

	// Trailing blank cells end the options; a gap would shift correct_option.
	cells := row[len(quizHeader):]
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	options := make([]string, len(cells))
	for i, o := range cells {
		if options[i] = strings.TrimSpace(o); options[i] == "" {
			return 0, QuizQuestion{}, fmt.Errorf("option %d is blank", i+1)
		}
	}

	return slideID, QuizQuestion{
		ID:            strings.TrimSpace(row[1]),
		Question:      strings.TrimSpace(row[2]),
		CorrectAnswer: correct - 1,
		Explanation:   strings.TrimSpace(row[4]),
		Options:       options,
	}, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
