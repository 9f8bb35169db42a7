package document

import (
	"fmt"

	"formscan/internal/domain"
)

// InnerCurvatureV1 is the inner-curvature inspection form layout.
const InnerCurvatureV1 = "inner_curvature_v1"

// SignatureAbsent marks a signature box that carries no signature.
const SignatureAbsent = "–"

// Template describes the row shape of a form layout. Row handling is driven
// entirely by these values.
type Template struct {
	ID                string
	MeasurementGroups []string
	PositionsPerGroup int
	ExportFilePrefix  string
}

// templates is checked against RowGroups at init; naming a group a
// CurvatureRow cannot hold is a programming error.
var templates = map[string]Template{
	InnerCurvatureV1: {
		ID:                InnerCurvatureV1,
		MeasurementGroups: []string{"lu", "lc", "lb"},
		PositionsPerGroup: 4,
		ExportFilePrefix:  "inner_curvature",
	},
}

func init() {
	for id, t := range templates {
		if err := checkTemplate(t); err != nil {
			panic(fmt.Sprintf("document: template %s: %v", id, err))
		}
	}
}

func checkTemplate(t Template) error {
	if t.PositionsPerGroup <= 0 {
		return fmt.Errorf("positions per group must be positive")
	}
	if len(t.MeasurementGroups) == 0 {
		return fmt.Errorf("no measurement groups")
	}
	var row CurvatureRow
	for _, g := range t.MeasurementGroups {
		if row.Group(g) == nil {
			return fmt.Errorf("measurement group %q is not one of %v", g, RowGroups)
		}
	}
	return nil
}

// LookupTemplate returns the registered template with the given id.
func LookupTemplate(id string) (Template, error) {
	t, ok := templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", domain.ErrUnknownTemplate, id)
	}
	return t, nil
}

// ExportFilename is the default workbook name for a job.
func (t Template) ExportFilename(jobID string) string {
	return fmt.Sprintf("%s_%s.xlsx", t.ExportFilePrefix, jobID)
}
