package content

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fastwise/tutr/internal/graph"
)

// xlsx column headers, matched case-insensitively on the first row.
const (
	colID               = "id"
	colTitle            = "question_title"
	colContent          = "question"
	colDifficulty       = "difficulty"
	colStep             = "step_no"
	colSubStep          = "sub_step_no"
	colSequence         = "sl_no"
	colStandardConcepts = "standard_concepts"
	colSubConcepts      = "sub_concepts"
)

// listSeparator splits multi-valued spreadsheet cells.
const listSeparator = ";"

// loadXLSX reads question records from the first sheet of a workbook. Row 1
// must be a header row naming the record fields.
func loadXLSX(path string) ([]graph.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colID, colTitle, colStep, colSubStep, colSequence} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, required)
		}
	}

	records := make([]graph.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := rowToRecord(cols, row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func rowToRecord(cols map[string]int, row []string) (graph.Record, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	cellInt := func(name string) (int, error) {
		v := cell(name)
		if v == "" {
			return 0, fmt.Errorf("missing %s", name)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return n, nil
	}

	step, err := cellInt(colStep)
	if err != nil {
		return graph.Record{}, err
	}
	subStep, err := cellInt(colSubStep)
	if err != nil {
		return graph.Record{}, err
	}
	seq, err := cellInt(colSequence)
	if err != nil {
		return graph.Record{}, err
	}

	return graph.Record{
		ID:               cell(colID),
		Title:            cell(colTitle),
		Content:          cell(colContent),
		Difficulty:       cell(colDifficulty),
		StepNumber:       step,
		SubStepNumber:    subStep,
		SequenceNumber:   seq,
		StandardConcepts: splitList(cell(colStandardConcepts)),
		KeyConcepts:      splitList(cell(colSubConcepts)),
	}, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
