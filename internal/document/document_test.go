package document_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formscan/internal/document"
	"formscan/internal/domain"
)

// backendPayload mirrors what the OCR backend returns today: bare strings,
// top-level rows and root-relative asset paths.
const backendPayload = `{
  "template": "inner_curvature_v1",
  "header": {
    "construction_number": "K-1021",
    "orderer": "East Rail",
    "construction_name": "Viaduct 3",
    "project_title": "Inner curvature check"
  },
  "table": {"title_raw": "曲率R 3000"},
  "assets": {
    "page0_image": "/v1/jobs/J1/asset/page0.png",
    "diagram_image": "/v1/jobs/J1/asset/diagram.png",
    "header_crops": {"orderer": "/v1/jobs/J1/asset/header_orderer.png"},
    "row_crops": {"row1": {"part": "/v1/jobs/J1/asset/part_row1.png", "date": "date_row1.png"}}
  },
  "rows": [
    {"part_number": "DB11-3A", "lu": ["+1", "0", "-1", "+2"], "lc": ["1", "", "0.5", "1"], "lb": ["0", "0", "0", "0"],
     "inspection_date": "January 5", "_date_raw": "1/5", "confirmer": "Sato"},
    {"part_number": "DB11-3B", "lu": ["+1"], "lc": [], "inspection_date": "", "_date_raw": "", "confirmer": ""},
    {"part_number": "DB11-3C"}
  ]
}`

func decode(t *testing.T, payload string) *document.CurvatureDoc {
	t.Helper()
	doc, err := document.Decode("J1", []byte(payload), document.DecodeOptions{})
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

func assertGroupWidths(t *testing.T, doc *document.CurvatureDoc) {
	t.Helper()
	for i, r := range doc.Table.Rows {
		assert.Len(t, r.LU, 4, "row %d lu", i)
		assert.Len(t, r.LC, 4, "row %d lc", i)
		assert.Len(t, r.LB, 4, "row %d lb", i)
	}
}

func TestDecode_BackendPayload(t *testing.T) {
	doc := decode(t, backendPayload)

	assert.Equal(t, document.InnerCurvatureV1, doc.TemplateID)
	assert.Equal(t, "J1", doc.JobID)
	assert.Equal(t, "K-1021", doc.Header.ConstructionNumber.Value.String())
	assert.Equal(t, "曲率R 3000", doc.Table.TitleRaw.Value.String())
	require.Len(t, doc.Table.Rows, 3)
	assertGroupWidths(t, doc)

	first := doc.Table.Rows[0]
	assert.Equal(t, "+1", first.LU[0].Value.String())
	assert.Equal(t, "+2", first.LU[3].Value.String())
	assert.False(t, first.LU[0].NeedsReview)
	assert.Equal(t, "January 5", first.InspectionDate.Value.String())
	require.NotNil(t, first.InspectionDate.Raw)
	assert.Equal(t, "1/5", *first.InspectionDate.Raw)

	second := doc.Table.Rows[1]
	assert.Equal(t, "+1", second.LU[0].Value.String())
	assert.True(t, second.LU[1].Value.IsNull())
	assert.True(t, second.LC[0].Value.IsNull())

	require.NotNil(t, doc.Assets)
	assert.Equal(t, "/v1/jobs/J1/asset/diagram.png", doc.Assets.DiagramImage)
	assert.Equal(t, "date_row1.png", doc.Assets.RowCrops["row1"].Date)
	assert.Equal(t, "/v1/jobs/J1/asset/header_orderer.png", doc.Assets.HeaderCrops["orderer"])
}

func TestDecode_SignaturesDefaultToAbsentMarker(t *testing.T) {
	doc := decode(t, `{"template":"inner_curvature_v1","header":{"signatures":{"approval":"","examination":null,"create":"Ito"}}}`)

	assert.Equal(t, document.SignatureAbsent, doc.Header.Signatures.Approval.Value.String())
	assert.Equal(t, document.SignatureAbsent, doc.Header.Signatures.Examination.Value.String())
	assert.Equal(t, "Ito", doc.Header.Signatures.Create.Value.String())
}

func TestDecode_PartialPayloadsAlwaysYieldFixedWidthRows(t *testing.T) {
	payloads := map[string]string{
		"template only":        `{"template":"inner_curvature_v1"}`,
		"template id alias":    `{"templateId":"inner_curvature_v1"}`,
		"null sections":        `{"template":"inner_curvature_v1","header":null,"table":null,"rows":null,"assets":null}`,
		"mistyped sections":    `{"template":"inner_curvature_v1","header":"x","table":[1],"rows":{"a":1},"assets":7}`,
		"rows inside table":    `{"template":"inner_curvature_v1","table":{"title_raw":"","rows":[{"lu":["1"]}]}}`,
		"non-object rows":      `{"template":"inner_curvature_v1","rows":[1,"x",null,[]]}`,
		"mistyped groups":      `{"template":"inner_curvature_v1","rows":[{"lu":"1234","lc":{"0":"1"},"lb":null}]}`,
		"overlong groups":      `{"template":"inner_curvature_v1","rows":[{"lu":["1","2","3","4","5","6"]}]}`,
		"object cells":         `{"template":"inner_curvature_v1","rows":[{"lu":[{"value":"+1","raw":"+l","conf":0.4},{"value":[1]},true,2.5]}]}`,
		"mistyped cell fields": `{"template":"inner_curvature_v1","rows":[{"part_number":{"value":"A","conf":"high","needsReview":"yes"}}]}`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			doc := decode(t, payload)
			assertGroupWidths(t, doc)
			assert.NotPanics(t, func() {
				_ = doc.Advisories()
				_ = doc.ForExport()
				_, err := json.Marshal(doc)
				assert.NoError(t, err)
			})
		})
	}
}

func TestDecode_RejectsPayloadsWithoutTemplate(t *testing.T) {
	payloads := map[string]string{
		"not json":         `<html>502 Bad Gateway</html>`,
		"array":            `[]`,
		"empty object":     `{}`,
		"empty template":   `{"template":""}`,
		"numeric template": `{"template":1}`,
		"trailing data":    `{"template":"inner_curvature_v1"} {}`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			doc, err := document.Decode("J1", []byte(payload), document.DecodeOptions{})
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, document.ErrMalformedPayload)
		})
	}
}

func TestDecode_UnknownTemplate(t *testing.T) {
	_, err := document.Decode("J1", []byte(`{"template":"outer_curvature_v9"}`), document.DecodeOptions{})

	assert.ErrorIs(t, err, document.ErrMalformedPayload)
	assert.True(t, errors.Is(err, domain.ErrUnknownTemplate))
}

func TestDecode_ReviewFlags(t *testing.T) {
	doc := decode(t, `{"template":"inner_curvature_v1","rows":[{
		"part_number": {"value":"DB11-3A","conf":0.95},
		"lu": [{"value":"+1","conf":0.3}, "1O", "1.25", 12],
		"lc": [{"value":"","raw":"l|"}, {"value":"2","needsReview":true}, "-0.5", null],
		"inspection_date": {"value":"","raw":"13/45"}
	}]}`)

	row := doc.Table.Rows[0]
	assert.False(t, row.PartNumber.NeedsReview)
	assert.True(t, row.LU[0].NeedsReview, "low confidence")
	assert.True(t, row.LU[1].NeedsReview, "non-numeric text")
	assert.True(t, row.LU[2].NeedsReview, "two decimals")
	assert.False(t, row.LU[3].NeedsReview, "json number")
	assert.True(t, row.LC[0].NeedsReview, "raw read but value empty")
	assert.True(t, row.LC[1].NeedsReview, "backend flag")
	assert.False(t, row.LC[2].NeedsReview)
	assert.False(t, row.LC[3].NeedsReview, "null without raw")
	assert.True(t, row.InspectionDate.NeedsReview)
}

func TestDecode_BooleanCellsAreNotCoerced(t *testing.T) {
	doc := decode(t, `{"template":"inner_curvature_v1",
		"header": {"orderer": true, "project_title": {"value": false, "raw": "X"}},
		"rows": [{"lu": [true, "0"]}]}`)

	assert.True(t, doc.Header.Orderer.Value.IsNull())
	assert.True(t, doc.Header.Orderer.NeedsReview)
	assert.True(t, doc.Header.ProjectTitle.Value.IsNull())
	assert.True(t, doc.Header.ProjectTitle.NeedsReview)
	assert.True(t, doc.Table.Rows[0].LU[0].Value.IsNull())
	assert.True(t, doc.Table.Rows[0].LU[0].NeedsReview)

	out, err := json.Marshal(doc.ForExport().Header.Orderer)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":null,"needsReview":true}`, string(out))

	var v document.Value
	assert.Error(t, json.Unmarshal([]byte(`true`), &v))
}

func TestDecode_ConfidenceThresholdOption(t *testing.T) {
	payload := []byte(`{"template":"inner_curvature_v1","header":{"orderer":{"value":"East","conf":0.7}}}`)

	strict, err := document.Decode("J1", payload, document.DecodeOptions{ReviewThreshold: 0.8})
	require.NoError(t, err)
	lenient, err := document.Decode("J1", payload, document.DecodeOptions{})
	require.NoError(t, err)

	assert.True(t, strict.Header.Orderer.NeedsReview)
	assert.False(t, lenient.Header.Orderer.NeedsReview)
}

func TestCell_NullAndEmptyStringAreDistinct(t *testing.T) {
	null, err := json.Marshal(document.Cell{})
	require.NoError(t, err)
	empty, err := json.Marshal(document.TextCell(""))
	require.NoError(t, err)

	assert.JSONEq(t, `{"value":null}`, string(null))
	assert.JSONEq(t, `{"value":""}`, string(empty))
}

func TestCell_ProvenanceRoundTrip(t *testing.T) {
	var c document.Cell
	require.NoError(t, json.Unmarshal([]byte(`{"value":1.50,"raw":"1.5O","conf":0.82,"needsReview":true}`), &c))

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":1.50,"raw":"1.5O","conf":0.82,"needsReview":true}`, string(out))
	assert.Equal(t, "1.50", c.Value.String())
}

func TestUpdateCell_KeepsProvenance(t *testing.T) {
	doc := decode(t, `{"template":"inner_curvature_v1","rows":[{"lu":[{"value":"1O","raw":"1O","conf":0.2}]}]}`)
	require.True(t, doc.Table.Rows[0].LU[0].NeedsReview)

	edit, err := doc.UpdateCell("table.rows.0.lu.0", document.Text("+10"))
	require.NoError(t, err)

	cell := doc.Table.Rows[0].LU[0]
	assert.Equal(t, "1O", edit.Old.String())
	assert.Equal(t, "+10", cell.Value.String())
	require.NotNil(t, cell.Raw)
	assert.Equal(t, "1O", *cell.Raw)
	require.NotNil(t, cell.Conf)
	assert.InDelta(t, 0.2, *cell.Conf, 1e-9)
	assert.False(t, cell.NeedsReview)

	_, err = doc.UpdateCell("rows.0.lu.1", document.Text("abc"))
	require.NoError(t, err)
	assert.True(t, doc.Table.Rows[0].LU[1].NeedsReview)
}

func TestUpdateCell_InvalidPaths(t *testing.T) {
	doc := decode(t, backendPayload)
	for _, path := range []string{"", "header", "header.nope", "table.rows.3.lu.0", "table.rows.0.lu.4", "table.rows.x.lu.0"} {
		_, err := doc.UpdateCell(path, document.Text("1"))
		assert.ErrorIs(t, err, domain.ErrInvalidCellPath, path)
	}
}

func TestUpdateCell_EditWithoutChangeKeepsSign(t *testing.T) {
	doc := decode(t, backendPayload)
	current, err := doc.Cell("table.rows.0.lu.0")
	require.NoError(t, err)

	_, err = doc.UpdateCell("table.rows.0.lu.0", current.Value)
	require.NoError(t, err)

	out, err := json.Marshal(doc.ForExport().Table.Rows[0].LU[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"+1"}`, string(out))
}

func TestAdvisories_TitleEmptyExactlyWhenEmpty(t *testing.T) {
	cases := map[string]bool{
		`null`:        true,
		`""`:          true,
		`" "`:         false,
		`"曲率R 3000"`: false,
	}
	for title, wantEmpty := range cases {
		doc := decode(t, `{"template":"inner_curvature_v1","table":{"title_raw":`+title+`}}`)

		var raised bool
		for _, a := range doc.Advisories() {
			if a.Code == document.AdvisoryTitleEmpty {
				raised = true
			}
		}
		assert.Equal(t, wantEmpty, raised, title)
		assert.Equal(t, wantEmpty, doc.TitleEmpty(), title)
	}
}

func TestTitleRawIsStoredVerbatim(t *testing.T) {
	doc := decode(t, `{"template":"inner_curvature_v1","table":{"title_raw":"  曲率R  ＋3000 "}}`)
	assert.Equal(t, "  曲率R  ＋3000 ", doc.Table.TitleRaw.Value.String())
}

func TestExportAnomalies(t *testing.T) {
	doc := decode(t, `{"template":"inner_curvature_v1","rows":[{"lu":[{"value":"","raw":"?"},{"value":null,"needsReview":true},"x",""]}]}`)

	anomalies := doc.ExportAnomalies()
	paths := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		paths = append(paths, a.Path)
	}
	assert.Equal(t, []string{"table.rows.0.lu.0", "table.rows.0.lu.1"}, paths)
}

func TestForExport_NormalizesEditedSignatureOnly(t *testing.T) {
	doc := decode(t, backendPayload)
	_, err := doc.UpdateCell("header.signatures.approval", document.Text(""))
	require.NoError(t, err)

	out := doc.ForExport()

	assert.Equal(t, document.SignatureAbsent, out.Header.Signatures.Approval.Value.String())
	assert.Equal(t, "", doc.Header.Signatures.Approval.Value.String(), "source document untouched")
}

func TestForExport_WithoutEditsIsFieldForFieldIdentical(t *testing.T) {
	doc := decode(t, backendPayload)

	before, err := json.Marshal(doc)
	require.NoError(t, err)
	after, err := json.Marshal(doc.ForExport())
	require.NoError(t, err)

	assert.JSONEq(t, string(before), string(after))
}

func TestAssetsRewrite(t *testing.T) {
	doc := decode(t, backendPayload)
	doc.Assets.Rewrite(func(ref string) string { return "X" + ref })

	assert.Equal(t, "X/v1/jobs/J1/asset/page0.png", doc.Assets.PageImage)
	assert.Equal(t, "", doc.Assets.TableImage)
	assert.Equal(t, "Xdate_row1.png", doc.Assets.RowCrops["row1"].Date)
	assert.Equal(t, "", doc.Assets.RowCrops["row1"].Confirmer)
}

func TestCheckTemplate(t *testing.T) {
	registered, err := document.LookupTemplate(document.InnerCurvatureV1)
	require.NoError(t, err)
	assert.NoError(t, document.CheckTemplate(registered))

	for _, g := range document.RowGroups {
		var row document.CurvatureRow
		assert.NotNil(t, row.Group(g), g)
	}

	bad := []document.Template{
		{ID: "t", MeasurementGroups: []string{"lu", "rx"}, PositionsPerGroup: 4},
		{ID: "t", MeasurementGroups: nil, PositionsPerGroup: 4},
		{ID: "t", MeasurementGroups: []string{"lu"}, PositionsPerGroup: 0},
	}
	for _, tmpl := range bad {
		assert.Error(t, document.CheckTemplate(tmpl), "%v", tmpl)
	}
}

func TestUpdateCell_PathsFollowTemplateGroups(t *testing.T) {
	doc := decode(t, backendPayload)

	for _, g := range []string{"lu", "lc", "lb"} {
		_, err := doc.Cell("table.rows.0." + g + ".3")
		assert.NoError(t, err, g)
	}
	_, err := doc.Cell("table.rows.0.rx.0")
	assert.ErrorIs(t, err, domain.ErrInvalidCellPath)
}
