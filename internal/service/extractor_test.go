package service_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formscan/internal/asset"
	"formscan/internal/document"
	"formscan/internal/domain"
	"formscan/internal/port"
	"formscan/internal/service"
	"formscan/mocks"
)

// j1Payload has three rows, an empty title and one asset of each reference form.
const j1Payload = `{
  "template": "inner_curvature_v1",
  "header": {"construction_number": "K-1021", "orderer": "East Rail"},
  "table": {
    "title_raw": "",
    "rows": [
      {"part_number": "DB11-3A", "lu": ["+1", "0", "-1", "+2"], "lc": ["1", "1", "0", "1"], "lb": ["0", "0", "0", "0"], "confirmer": "Sato"},
      {"part_number": "DB11-3B", "lu": ["+1"]},
      {"part_number": "DB11-3C"}
    ]
  },
  "assets": {
    "diagram_image": "diagram.png",
    "table_image": "/static/table.png",
    "page0_image": "http://cdn.example/page0.png",
    "header_crops": {"orderer": "header_orderer.png"},
    "row_crops": {"row1": {"part": "/v1/jobs/J1/asset/part_row1.png"}}
  }
}`

func newExtractor(backend port.OCRBackend) *service.Extractor {
	return service.NewExtractor(backend, asset.NewResolver("http://h/"), document.DefaultReviewThreshold)
}

func okRelay(body string) *port.Relay {
	return &port.Relay{Status: http.StatusOK, Body: []byte(body), ContentType: "application/json"}
}

func TestExtractor_Success_ResolvesAssets(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(j1Payload), nil)

	doc, err := newExtractor(backend).Extract(context.Background(), "J1")

	require.NoError(t, err)
	assert.Equal(t, "J1", doc.JobID)
	assert.Len(t, doc.Table.Rows, 3)
	require.NotNil(t, doc.Assets)
	assert.Equal(t, "http://h/v1/jobs/J1/asset/diagram.png", doc.Assets.DiagramImage)
	assert.Equal(t, "http://h/static/table.png", doc.Assets.TableImage)
	assert.Equal(t, "http://cdn.example/page0.png", doc.Assets.PageImage)
	assert.Equal(t, "http://h/v1/jobs/J1/asset/header_orderer.png", doc.Assets.HeaderCrops["orderer"])
	assert.Equal(t, "http://h/v1/jobs/J1/asset/part_row1.png", doc.Assets.RowCrops["row1"].Part)
	backend.AssertExpectations(t)
}

func TestExtractor_BackendStatusCarriesBodyVerbatim(t *testing.T) {
	body := "red TITLE_RAW box doesn't cover only the title text"
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(&port.Relay{Status: http.StatusUnprocessableEntity, Body: []byte(body)}, nil)

	_, err := newExtractor(backend).Extract(context.Background(), "J1")

	var be *domain.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusUnprocessableEntity, be.Status)
	assert.Equal(t, body, be.Body)
}

func TestExtractor_TransportError(t *testing.T) {
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(nil, &domain.TransportError{Op: "extract", Err: errors.New("connection refused")})

	_, err := newExtractor(backend).Extract(context.Background(), "J1")

	var te *domain.TransportError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Error(), "connection refused")
}

func TestExtractor_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>gateway</html>"},
		{"array", `[1, 2, 3]`},
		{"no template", `{"header": {}, "rows": []}`},
		{"empty template", `{"template": ""}`},
		{"unknown template", `{"template": "outer_curvature_v9"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(mocks.MockOCRBackend)
			backend.On("Extract", mock.Anything, "J1").Return(okRelay(tt.body), nil)

			_, err := newExtractor(backend).Extract(context.Background(), "J1")

			var me *domain.MalformedResponseError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, http.StatusOK, me.Status)
			assert.Equal(t, tt.body, me.Preview)
		})
	}
}

func TestExtractor_MalformedPreviewIsBounded(t *testing.T) {
	body := strings.Repeat("x", domain.PreviewLimit*3)
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(body), nil)

	_, err := newExtractor(backend).Extract(context.Background(), "J1")

	var me *domain.MalformedResponseError
	require.True(t, errors.As(err, &me))
	assert.LessOrEqual(t, len(me.Preview), domain.PreviewLimit+3)
}

func TestExtractor_MalformedPreviewKeepsWholeRunes(t *testing.T) {
	body := strings.Repeat("曲", domain.PreviewLimit)
	backend := new(mocks.MockOCRBackend)
	backend.On("Extract", mock.Anything, "J1").Return(okRelay(body), nil)

	_, err := newExtractor(backend).Extract(context.Background(), "J1")

	var me *domain.MalformedResponseError
	require.True(t, errors.As(err, &me))
	assert.True(t, utf8.ValidString(me.Preview))
}
