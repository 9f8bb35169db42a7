// Package xlsxexport renders a reviewed inspection form as a workbook.
package xlsxexport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"formscan/internal/document"
)

// SheetName is the single worksheet of an exported workbook.
const SheetName = "inner_curvature"

// TableHeaderRow is the 1-based row holding the column titles of the
// measurement table. Data rows follow it directly.
const TableHeaderRow = 10

var headerFields = []struct {
	label string
	cell  func(h *document.Header) document.Cell
}{
	{"Construction No.", func(h *document.Header) document.Cell { return h.ConstructionNumber }},
	{"Orderer", func(h *document.Header) document.Cell { return h.Orderer }},
	{"Construction Name", func(h *document.Header) document.Cell { return h.ConstructionName }},
	{"Project Title", func(h *document.Header) document.Cell { return h.ProjectTitle }},
	{"Company", func(h *document.Header) document.Cell { return h.Company.Name }},
	{"Department", func(h *document.Header) document.Cell { return h.Company.Department }},
	{"Section", func(h *document.Header) document.Cell { return h.Company.Section }},
}

var signatureFields = []struct {
	label string
	cell  func(s *document.Signatures) document.Cell
}{
	{"Approval", func(s *document.Signatures) document.Cell { return s.Approval }},
	{"Examination", func(s *document.Signatures) document.Cell { return s.Examination }},
	{"Create", func(s *document.Signatures) document.Cell { return s.Create }},
}

// Columns returns the table column titles for a template.
func Columns(tmpl document.Template) []string {
	cols := []string{"Part No."}
	for _, g := range tmpl.MeasurementGroups {
		for i := 1; i <= tmpl.PositionsPerGroup; i++ {
			cols = append(cols, fmt.Sprintf("%s%d", g, i))
		}
	}
	return append(cols, "Inspection Date", "Confirmer")
}

type sheetWriter struct {
	f      *excelize.File
	review int
	err    error
}

func (w *sheetWriter) set(col, row int, v string, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStr(SheetName, cell, v); err != nil {
		w.err = err
		return
	}
	if style != 0 {
		w.err = w.f.SetCellStyle(SheetName, cell, cell, style)
	}
}

// cell writes the value as text so signs and trailing zeros survive.
func (w *sheetWriter) cell(col, row int, c document.Cell) {
	style := 0
	if c.NeedsReview {
		style = w.review
	}
	w.set(col, row, c.Value.String(), style)
}

// Write renders doc into an xlsx workbook on out. Cells still flagged for
// review are highlighted.
func Write(out io.Writer, doc *document.CurvatureDoc) error {
	tmpl, err := doc.Template()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsxexport: rename sheet: %w", err)
	}
	review, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFF2CC"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("xlsxexport: review style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsxexport: header style: %w", err)
	}
	w := &sheetWriter{f: f, review: review}

	h := &doc.Header
	for i, field := range headerFields {
		w.set(1, i+1, field.label, bold)
		w.cell(2, i+1, field.cell(h))
	}
	for i, field := range signatureFields {
		w.set(4, i+1, field.label, bold)
		w.cell(5, i+1, field.cell(&h.Signatures))
	}

	w.set(1, TableHeaderRow-1, "Title", bold)
	w.cell(2, TableHeaderRow-1, doc.Table.TitleRaw)

	for i, title := range Columns(tmpl) {
		w.set(i+1, TableHeaderRow, title, bold)
	}
	for r := range doc.Table.Rows {
		row := &doc.Table.Rows[r]
		line := TableHeaderRow + 1 + r
		col := 1
		w.cell(col, line, row.PartNumber)
		for _, g := range tmpl.MeasurementGroups {
			for _, c := range *row.Group(g) {
				col++
				w.cell(col, line, c)
			}
		}
		w.cell(col+1, line, row.InspectionDate)
		w.cell(col+2, line, row.Confirmer)
	}
	if w.err != nil {
		return fmt.Errorf("xlsxexport: write cells: %w", w.err)
	}

	_ = f.SetColWidth(SheetName, "A", "A", 18)
	_ = f.SetColWidth(SheetName, "B", "B", 24)

	if err := f.Write(out); err != nil {
		return fmt.Errorf("xlsxexport: write workbook: %w", err)
	}
	return nil
}
