package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload wraps every reason an extraction payload is rejected.
var ErrMalformedPayload = errors.New("malformed extraction payload")

// DefaultReviewThreshold is the confidence under which a cell is flagged.
const DefaultReviewThreshold = 0.6

// DecodeOptions tune ingestion.
type DecodeOptions struct {
	ReviewThreshold float64
}

type object map[string]json.RawMessage

// Decode builds a fully populated document from a backend extraction payload.
//
// The payload must be a JSON object naming a registered template; anything
// else is ErrMalformedPayload. Beyond that every section is optional: missing
// or mistyped header, table, rows and assets yield null cells, and every
// measurement group is padded (or cut) to the template's width.
func Decode(jobID string, payload []byte, opts DecodeOptions) (*CurvatureDoc, error) {
	if err := validatePayload(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	var root object
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	templateID := stringOf(root["template"])
	if templateID == "" {
		templateID = stringOf(root["templateId"])
	}
	tmpl, err := LookupTemplate(templateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if jobID == "" {
		jobID = stringOf(root["jobId"])
	}

	doc := &CurvatureDoc{TemplateID: tmpl.ID, JobID: jobID}
	doc.Header = decodeHeader(objectOf(root["header"]))

	table := objectOf(root["table"])
	doc.Table.TitleRaw = decodeCell(table["title_raw"])
	rows, ok := arrayOf(table["rows"])
	if !ok {
		rows, _ = arrayOf(root["rows"])
	}
	doc.Table.Rows = make([]CurvatureRow, 0, len(rows))
	for _, raw := range rows {
		doc.Table.Rows = append(doc.Table.Rows, decodeRow(objectOf(raw), tmpl))
	}

	if raw, ok := root["assets"]; ok {
		doc.Assets = decodeAssets(objectOf(raw))
	}

	threshold := opts.ReviewThreshold
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}
	normalizeSignatures(doc)
	flagForReview(doc, threshold)
	return doc, nil
}

func decodeHeader(h object) Header {
	company := objectOf(h["company"])
	sigs := objectOf(h["signatures"])
	return Header{
		ConstructionNumber: decodeCell(h["construction_number"]),
		Orderer:            decodeCell(h["orderer"]),
		ConstructionName:   decodeCell(h["construction_name"]),
		ProjectTitle:       decodeCell(h["project_title"]),
		Company: Company{
			Name:       decodeCell(company["name"]),
			Department: decodeCell(company["department"]),
			Section:    decodeCell(company["section"]),
		},
		Signatures: Signatures{
			Approval:    decodeCell(sigs["approval"]),
			Examination: decodeCell(sigs["examination"]),
			Create:      decodeCell(sigs["create"]),
		},
	}
}

func decodeRow(r object, tmpl Template) CurvatureRow {
	row := CurvatureRow{
		PartNumber:     decodeCell(r["part_number"]),
		InspectionDate: decodeCell(r["inspection_date"]),
		Confirmer:      decodeCell(r["confirmer"]),
	}
	for _, name := range tmpl.MeasurementGroups {
		items, _ := arrayOf(r[name])
		*row.Group(name) = decodeGroup(items, tmpl.PositionsPerGroup)
	}
	// Groups the template does not name still honour the fixed width.
	for _, name := range RowGroups {
		if g := row.Group(name); len(*g) != tmpl.PositionsPerGroup {
			*g = decodeGroup(nil, tmpl.PositionsPerGroup)
		}
	}
	if row.InspectionDate.Raw == nil {
		if dateRaw, ok := r["_date_raw"]; ok {
			if v, ok := parseValue(dateRaw); ok && v.Kind() == KindText {
				s := v.String()
				row.InspectionDate.Raw = &s
			}
		}
	}
	return row
}

func decodeGroup(items []json.RawMessage, width int) []Cell {
	cells := make([]Cell, width)
	for i := 0; i < width && i < len(items); i++ {
		cells[i] = decodeCell(items[i])
	}
	return cells
}

func decodeAssets(a object) *Assets {
	assets := &Assets{
		PageImage:      stringOf(a["page0_image"]),
		DiagramImage:   stringOf(a["diagram_image"]),
		TableImage:     stringOf(a["table_image"]),
		DebugBBox:      stringOf(a["debug_bbox"]),
		TableDebugGrid: stringOf(a["table_debug_grid"]),
	}
	if crops := objectOf(a["header_crops"]); len(crops) > 0 {
		assets.HeaderCrops = make(map[string]string, len(crops))
		for k, v := range crops {
			if s := stringOf(v); s != "" {
				assets.HeaderCrops[k] = s
			}
		}
	}
	if rows := objectOf(a["row_crops"]); len(rows) > 0 {
		assets.RowCrops = make(map[string]RowCrops, len(rows))
		for k, v := range rows {
			rc := objectOf(v)
			assets.RowCrops[k] = RowCrops{
				Part:      stringOf(rc["part"]),
				Date:      stringOf(rc["date"]),
				Confirmer: stringOf(rc["confirmer"]),
			}
		}
	}
	return assets
}

func objectOf(raw json.RawMessage) object {
	var o object
	if len(raw) == 0 || json.Unmarshal(raw, &o) != nil || o == nil {
		return object{}
	}
	return o
}

func arrayOf(raw json.RawMessage) ([]json.RawMessage, bool) {
	var a []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &a) != nil || a == nil {
		return nil, false
	}
	return a, true
}

func stringOf(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
