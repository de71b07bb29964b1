package ledger

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Decision is the reviewer verdict carried in a ledger row's status cell.
type Decision int

const (
	DecisionPending Decision = iota
	DecisionApproved
	DecisionRejected
)

const (
	nameColumn   = "Nome"
	statusColumn = "Status"
)

// ParseDecision maps a status cell to a verdict. Anything other than
// the two recognised verdicts counts as still pending.
func ParseDecision(status string) Decision {
	switch {
	case strings.EqualFold(strings.TrimSpace(status), "Aprovado"):
		return DecisionApproved
	case strings.EqualFold(strings.TrimSpace(status), "Reprovado"):
		return DecisionRejected
	default:
		return DecisionPending
	}
}

// Row is a single ledger entry. Name and Status are lifted out of the
// Nome and Status columns; Cells keeps the whole source row so a
// rewrite carries reviewer columns through untouched.
type Row struct {
	Name   string
	Status string
	Cells  []string
}

// Sheet is the decoded status ledger. Header order and sheet name are
// preserved so a rewrite keeps the reviewers' layout.
type Sheet struct {
	SheetName string
	Header    []string
	Rows      []Row

	nameIdx   int
	statusIdx int
}

// Parse decodes the first worksheet of an xlsx ledger. The header row
// must carry the Nome and Status columns; matching is case-insensitive.
func Parse(data []byte) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open ledger workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("ledger workbook has no sheets")
	}
	sheetName := sheets[0]

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheetName)
	}

	header := rows[0]
	nameIdx, statusIdx := -1, -1
	for i, col := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(col), nameColumn):
			nameIdx = i
		case strings.EqualFold(strings.TrimSpace(col), statusColumn):
			statusIdx = i
		}
	}
	if nameIdx < 0 || statusIdx < 0 {
		return nil, fmt.Errorf("sheet %q is missing the %s or %s column", sheetName, nameColumn, statusColumn)
	}

	sheet := &Sheet{
		SheetName: sheetName,
		Header:    header,
		nameIdx:   nameIdx,
		statusIdx: statusIdx,
	}
	for _, row := range rows[1:] {
		sheet.Rows = append(sheet.Rows, Row{
			Name:   cellAt(row, nameIdx),
			Status: cellAt(row, statusIdx),
			Cells:  row,
		})
	}
	return sheet, nil
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Encode renders a workbook with the sheet's layout carrying only the
// given rows. Rows taken from a parse keep every source cell, with the
// Nome and Status positions written from the Row fields. Used to
// rewrite the ledger after processed rows are dropped.
func (s *Sheet) Encode(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", s.SheetName)

	header := make([]interface{}, len(s.Header))
	for i, col := range s.Header {
		header[i] = col
	}
	if err := f.SetSheetRow(s.SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	width := len(s.Header)
	if n := s.statusIdx + 1; n > width {
		width = n
	}
	for i, row := range rows {
		n := width
		if len(row.Cells) > n {
			n = len(row.Cells)
		}
		cells := make([]interface{}, n)
		for j := range cells {
			cells[j] = ""
		}
		for j, cell := range row.Cells {
			cells[j] = cell
		}
		cells[s.nameIdx] = row.Name
		cells[s.statusIdx] = row.Status
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(s.SheetName, start, &cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render ledger workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// NewWorkbook renders an empty ledger with the default layout. Used
// when the remote ledger does not exist yet.
func NewWorkbook(sheetName string) ([]byte, error) {
	s := &Sheet{
		SheetName: sheetName,
		Header:    []string{nameColumn, statusColumn},
		nameIdx:   0,
		statusIdx: 1,
	}
	return s.Encode(nil)
}
