package document

import (
	"regexp"
)

// measurementPattern: optional sign, digits, at most one decimal place.
var measurementPattern = regexp.MustCompile(`^[+-]?\d+(\.\d)?$`)

// Advisory codes. None of them blocks the flow.
const (
	AdvisoryTitleEmpty   = "TITLE_EMPTY"
	AdvisoryNeedsReview  = "NEEDS_REVIEW"
	AdvisoryEmptyFlagged = "EMPTY_FLAGGED"
)

// Advisory is a non-fatal finding shown next to a cell.
type Advisory struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// suspicious reports structural problems with a cell's current value.
func suspicious(kind cellKind, c Cell) bool {
	switch kind {
	case kindTitle, kindSignature:
		return false
	}
	if c.Value.IsEmpty() {
		return c.Raw != nil && *c.Raw != ""
	}
	if kind == kindMeasurement && c.Value.Kind() == KindText {
		return !measurementPattern.MatchString(c.Value.String())
	}
	return false
}

func flagForReview(d *CurvatureDoc, threshold float64) {
	d.walk(func(_ string, kind cellKind, c *Cell) bool {
		if c.Conf != nil && *c.Conf < threshold {
			c.NeedsReview = true
		}
		if suspicious(kind, *c) {
			c.NeedsReview = true
		}
		return true
	})
}

func normalizeSignatures(d *CurvatureDoc) {
	d.walk(func(_ string, kind cellKind, c *Cell) bool {
		if kind == kindSignature && c.Value.IsEmpty() {
			c.Value = Text(SignatureAbsent)
		}
		return true
	})
}

// TitleEmpty reports whether the table title was read as nothing.
func (d *CurvatureDoc) TitleEmpty() bool {
	return d.Table.TitleRaw.Value.IsEmpty()
}

// Advisories lists every advisory of the document in cell order.
func (d *CurvatureDoc) Advisories() []Advisory {
	var out []Advisory
	if d.TitleEmpty() {
		out = append(out, Advisory{
			Path:    "table.title_raw",
			Code:    AdvisoryTitleEmpty,
			Message: "table title is empty; check that the title crop covers only the title text",
		})
	}
	d.walk(func(path string, _ cellKind, c *Cell) bool {
		if !c.NeedsReview {
			return true
		}
		if c.Value.IsEmpty() {
			out = append(out, Advisory{Path: path, Code: AdvisoryEmptyFlagged, Message: "empty value flagged for review"})
			return true
		}
		out = append(out, Advisory{Path: path, Code: AdvisoryNeedsReview, Message: "value needs review"})
		return true
	})
	return out
}

// ExportAnomalies lists cells that are empty and flagged for review.
func (d *CurvatureDoc) ExportAnomalies() []Advisory {
	var out []Advisory
	for _, a := range d.Advisories() {
		if a.Code == AdvisoryEmptyFlagged {
			out = append(out, a)
		}
	}
	return out
}

// ForExport returns a copy ready to send: cell values are untouched except
// that an empty signature carries SignatureAbsent.
func (d *CurvatureDoc) ForExport() *CurvatureDoc {
	out := d.Clone()
	normalizeSignatures(out)
	return out
}
