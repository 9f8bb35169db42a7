package document

import (
	"fmt"
	"strings"

	"formscan/internal/domain"
)

type cellKind int

const (
	kindPlain cellKind = iota
	kindTitle
	kindMeasurement
	kindDate
	kindSignature
)

// walk visits every cell in a fixed order. fn returns false to stop.
func (d *CurvatureDoc) walk(fn func(path string, kind cellKind, c *Cell) bool) {
	h := &d.Header
	plain := []struct {
		path string
		kind cellKind
		cell *Cell
	}{
		{"header.construction_number", kindPlain, &h.ConstructionNumber},
		{"header.orderer", kindPlain, &h.Orderer},
		{"header.construction_name", kindPlain, &h.ConstructionName},
		{"header.project_title", kindPlain, &h.ProjectTitle},
		{"header.company.name", kindPlain, &h.Company.Name},
		{"header.company.department", kindPlain, &h.Company.Department},
		{"header.company.section", kindPlain, &h.Company.Section},
		{"header.signatures.approval", kindSignature, &h.Signatures.Approval},
		{"header.signatures.examination", kindSignature, &h.Signatures.Examination},
		{"header.signatures.create", kindSignature, &h.Signatures.Create},
		{"table.title_raw", kindTitle, &d.Table.TitleRaw},
	}
	for _, p := range plain {
		if !fn(p.path, p.kind, p.cell) {
			return
		}
	}

	groups := RowGroups
	if tmpl, err := d.Template(); err == nil {
		groups = tmpl.MeasurementGroups
	}
	for i := range d.Table.Rows {
		r := &d.Table.Rows[i]
		prefix := fmt.Sprintf("table.rows.%d.", i)
		if !fn(prefix+"part_number", kindPlain, &r.PartNumber) {
			return
		}
		for _, name := range groups {
			group := *r.Group(name)
			for j := range group {
				if !fn(fmt.Sprintf("%s%s.%d", prefix, name, j), kindMeasurement, &group[j]) {
					return
				}
			}
		}
		if !fn(prefix+"inspection_date", kindDate, &r.InspectionDate) {
			return
		}
		if !fn(prefix+"confirmer", kindPlain, &r.Confirmer) {
			return
		}
	}
}

// lookup resolves a dotted cell path such as "table.rows.0.lu.3".
// "rows.N..." is accepted as shorthand for "table.rows.N...".
func (d *CurvatureDoc) lookup(path string) (*Cell, cellKind, error) {
	if strings.HasPrefix(path, "rows.") {
		path = "table." + path
	}
	var (
		found *Cell
		kind  cellKind
	)
	d.walk(func(p string, k cellKind, c *Cell) bool {
		if p == path {
			found, kind = c, k
			return false
		}
		return true
	})
	if found == nil {
		return nil, 0, fmt.Errorf("%w: %q", domain.ErrInvalidCellPath, path)
	}
	return found, kind, nil
}

// Cell returns a copy of the cell at path.
func (d *CurvatureDoc) Cell(path string) (Cell, error) {
	c, _, err := d.lookup(path)
	if err != nil {
		return Cell{}, err
	}
	return c.clone(), nil
}
