package parser

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXExtractor reads the reference .docx: every paragraph in body
// order, then every table. Tables are read against the column grid
// first; rows that the grid cannot account for (horizontally merged
// cells) are re-read cell by cell at the markup level.
type DOCXExtractor struct{}

// errRowGrid marks a row whose cells cannot be resolved positionally
// against the table grid. Only this failure triggers the raw fallback.
var errRowGrid = errors.New("row cells do not fit table grid")

func (e *DOCXExtractor) Extract(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: "docx", Err: err}
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Format: "docx", Err: err}
	}

	var fragments []string
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			// Appended even when empty so the merged text keeps
			// the document's line structure.
			fragments = append(fragments, paragraphText(v))
		case *docx.Table:
			fragments = append(fragments, tableText(v)...)
		}
	}
	return buildResult(fragments), nil
}

// tableText walks one table row by row. Rows the grid model cannot
// resolve fall back to the raw cell walk; rows with no readable cells
// are dropped. A table with no rows at all contributes nothing.
func tableText(tbl *docx.Table) []string {
	if tbl == nil || len(tbl.TableRows) == 0 {
		return nil
	}
	var fragments []string
	for _, row := range tbl.TableRows {
		if row == nil {
			continue
		}
		cells, err := gridRowCells(tbl, row)
		if errors.Is(err, errRowGrid) {
			cells = rawRowCells(row)
		}
		fragments = append(fragments, cells...)
	}
	return fragments
}

// gridRowCells resolves a row's cells by grid column index: one cell
// per declared column, in column order. A row whose cell count
// disagrees with the grid (the merged-cell case) cannot be resolved
// this way and reports errRowGrid.
func gridRowCells(tbl *docx.Table, row *docx.WTableRow) ([]string, error) {
	cols := 0
	if tbl.TableGrid != nil {
		cols = len(tbl.TableGrid.GridCols)
	}
	if cols == 0 || len(row.TableCells) != cols {
		return nil, errRowGrid
	}
	cells := make([]string, 0, cols)
	for col := 0; col < cols; col++ {
		cells = append(cells, cellText(row.TableCells[col]))
	}
	return cells, nil
}

// rawRowCells re-reads a row beneath the grid abstraction: whatever
// cell elements the row actually carries, one fragment per paragraph,
// concatenating the literal text runs in document order.
func rawRowCells(row *docx.WTableRow) []string {
	var fragments []string
	for _, cell := range row.TableCells {
		if cell == nil {
			continue
		}
		for _, p := range cell.Paragraphs {
			if p == nil {
				continue
			}
			fragments = append(fragments, paragraphText(p))
		}
	}
	return fragments
}

func cellText(cell *docx.WTableCell) string {
	if cell == nil {
		return ""
	}
	var parts []string
	for _, p := range cell.Paragraphs {
		if p == nil {
			continue
		}
		parts = append(parts, paragraphText(p))
	}
	return strings.Join(parts, "\n")
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
