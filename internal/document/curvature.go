package document

// Company is the issuing company block of the header.
type Company struct {
	Name       Cell `json:"name"`
	Department Cell `json:"department"`
	Section    Cell `json:"section"`
}

// Signatures holds the three stamp boxes. An empty box carries SignatureAbsent.
type Signatures struct {
	Approval    Cell `json:"approval"`
	Examination Cell `json:"examination"`
	Create      Cell `json:"create"`
}

type Header struct {
	ConstructionNumber Cell       `json:"construction_number"`
	Orderer            Cell       `json:"orderer"`
	ConstructionName   Cell       `json:"construction_name"`
	ProjectTitle       Cell       `json:"project_title"`
	Company            Company    `json:"company"`
	Signatures         Signatures `json:"signatures"`
}

// CurvatureRow is one inspection record. LU, LC and LB always hold exactly
// Template.PositionsPerGroup cells.
type CurvatureRow struct {
	PartNumber     Cell   `json:"part_number"`
	LU             []Cell `json:"lu"`
	LC             []Cell `json:"lc"`
	LB             []Cell `json:"lb"`
	InspectionDate Cell   `json:"inspection_date"`
	Confirmer      Cell   `json:"confirmer"`
}

// RowGroups are the measurement groups a CurvatureRow can hold. A template
// may only name groups from this list.
var RowGroups = []string{"lu", "lc", "lb"}

// Group returns the measurement group with the given name, or nil.
func (r *CurvatureRow) Group(name string) *[]Cell {
	switch name {
	case "lu":
		return &r.LU
	case "lc":
		return &r.LC
	case "lb":
		return &r.LB
	}
	return nil
}

// Table holds the free-text title exactly as read and the inspection rows.
type Table struct {
	TitleRaw Cell           `json:"title_raw"`
	Rows     []CurvatureRow `json:"rows"`
}

// RowCrops are the per-row crop images.
type RowCrops struct {
	Part      string `json:"part,omitempty"`
	Date      string `json:"date,omitempty"`
	Confirmer string `json:"confirmer,omitempty"`
}

// Assets are named image references of a job.
type Assets struct {
	PageImage      string              `json:"page0_image,omitempty"`
	DiagramImage   string              `json:"diagram_image,omitempty"`
	TableImage     string              `json:"table_image,omitempty"`
	DebugBBox      string              `json:"debug_bbox,omitempty"`
	TableDebugGrid string              `json:"table_debug_grid,omitempty"`
	HeaderCrops    map[string]string   `json:"header_crops,omitempty"`
	RowCrops       map[string]RowCrops `json:"row_crops,omitempty"`
}

// Rewrite replaces every non-empty reference with fn(ref).
func (a *Assets) Rewrite(fn func(ref string) string) {
	if a == nil {
		return
	}
	apply := func(s *string) {
		if *s != "" {
			*s = fn(*s)
		}
	}
	apply(&a.PageImage)
	apply(&a.DiagramImage)
	apply(&a.TableImage)
	apply(&a.DebugBBox)
	apply(&a.TableDebugGrid)
	for k, v := range a.HeaderCrops {
		apply(&v)
		a.HeaderCrops[k] = v
	}
	for k, rc := range a.RowCrops {
		apply(&rc.Part)
		apply(&rc.Date)
		apply(&rc.Confirmer)
		a.RowCrops[k] = rc
	}
}

// CurvatureDoc is the full extracted document of one job.
type CurvatureDoc struct {
	TemplateID string  `json:"templateId"`
	JobID      string  `json:"jobId"`
	Header     Header  `json:"header"`
	Table      Table   `json:"table"`
	Assets     *Assets `json:"assets,omitempty"`
}

// Template returns the registered layout of the document.
func (d *CurvatureDoc) Template() (Template, error) {
	return LookupTemplate(d.TemplateID)
}

// Clone returns a deep copy.
func (d *CurvatureDoc) Clone() *CurvatureDoc {
	out := &CurvatureDoc{TemplateID: d.TemplateID, JobID: d.JobID}
	out.Header = d.Header
	out.Header.ConstructionNumber = d.Header.ConstructionNumber.clone()
	out.Header.Orderer = d.Header.Orderer.clone()
	out.Header.ConstructionName = d.Header.ConstructionName.clone()
	out.Header.ProjectTitle = d.Header.ProjectTitle.clone()
	out.Header.Company = Company{
		Name:       d.Header.Company.Name.clone(),
		Department: d.Header.Company.Department.clone(),
		Section:    d.Header.Company.Section.clone(),
	}
	out.Header.Signatures = Signatures{
		Approval:    d.Header.Signatures.Approval.clone(),
		Examination: d.Header.Signatures.Examination.clone(),
		Create:      d.Header.Signatures.Create.clone(),
	}
	out.Table.TitleRaw = d.Table.TitleRaw.clone()
	out.Table.Rows = make([]CurvatureRow, len(d.Table.Rows))
	for i, r := range d.Table.Rows {
		out.Table.Rows[i] = CurvatureRow{
			PartNumber:     r.PartNumber.clone(),
			LU:             cloneCells(r.LU),
			LC:             cloneCells(r.LC),
			LB:             cloneCells(r.LB),
			InspectionDate: r.InspectionDate.clone(),
			Confirmer:      r.Confirmer.clone(),
		}
	}
	if d.Assets != nil {
		a := *d.Assets
		if d.Assets.HeaderCrops != nil {
			a.HeaderCrops = make(map[string]string, len(d.Assets.HeaderCrops))
			for k, v := range d.Assets.HeaderCrops {
				a.HeaderCrops[k] = v
			}
		}
		if d.Assets.RowCrops != nil {
			a.RowCrops = make(map[string]RowCrops, len(d.Assets.RowCrops))
			for k, v := range d.Assets.RowCrops {
				a.RowCrops[k] = v
			}
		}
		out.Assets = &a
	}
	return out
}

func cloneCells(in []Cell) []Cell {
	out := make([]Cell, len(in))
	for i, c := range in {
		out[i] = c.clone()
	}
	return out
}
