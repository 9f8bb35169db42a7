package devbackend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"formscan/internal/document"
)

var headerKeys = []string{"construction_number", "orderer", "construction_name", "project_title"}

// partNumbers are the printed part numbers of the form's three rows.
var partNumbers = []string{"DB11-3A", "DB11-3B", "DB11-3C"}

// Extraction returns the extraction payload of a job. A prepared
// extraction.json wins; otherwise a blank form is produced whose page image
// is the uploaded file when it is an image.
func Extraction(dir, jobID string) (json.RawMessage, error) {
	prepared, err := os.ReadFile(filepath.Join(dir, ExtractionFile))
	if err == nil {
		return prepared, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", ExtractionFile, err)
	}

	input, err := InputFile(dir)
	if err != nil {
		return nil, err
	}
	return json.Marshal(blankExtraction(jobID, input))
}

func blankExtraction(jobID, input string) map[string]any {
	tmpl, _ := document.LookupTemplate(document.InnerCurvatureV1)
	assetURL := func(name string) string {
		return fmt.Sprintf("/v1/jobs/%s/asset/%s", jobID, name)
	}

	header := make(map[string]any, len(headerKeys))
	headerCrops := make(map[string]string, len(headerKeys))
	for _, k := range headerKeys {
		header[k] = ""
		headerCrops[k] = assetURL("header_" + k + ".png")
	}

	blank := make([]string, tmpl.PositionsPerGroup)
	rows := make([]map[string]any, 0, len(partNumbers))
	rowCrops := make(map[string]map[string]string, len(partNumbers))
	for i, part := range partNumbers {
		row := map[string]any{
			"part_number":     part,
			"inspection_date": "",
			"_date_raw":       "",
			"confirmer":       "",
		}
		for _, g := range tmpl.MeasurementGroups {
			row[g] = blank
		}
		rows = append(rows, row)
		key := fmt.Sprintf("row%d", i+1)
		rowCrops[key] = map[string]string{
			"part":      assetURL(fmt.Sprintf("part_row%d.png", i+1)),
			"date":      assetURL(fmt.Sprintf("date_row%d.png", i+1)),
			"confirmer": assetURL(fmt.Sprintf("confirmer_row%d.png", i+1)),
		}
	}

	assets := map[string]any{
		"header_crops": headerCrops,
		"row_crops":    rowCrops,
	}
	if isImage(input) {
		// Bare filename; resolved against the job's asset route.
		assets["page0_image"] = input
	}

	return map[string]any{
		"template": tmpl.ID,
		"header":   header,
		"table":    map[string]any{"title_raw": ""},
		"assets":   assets,
		"rows":     rows,
	}
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}
