package handler

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"formscan/internal/document"
	"formscan/internal/domain"
	"formscan/internal/port"
	"formscan/internal/service"
)

// ProxyHandler relays browser calls to the OCR backend. Backend answers are
// passed through with their status, body and content type untouched; only a
// backend that cannot be reached produces a response of our own (500).
type ProxyHandler struct {
	backend   port.OCRBackend
	exports   service.ExportService
	publicURL string
}

// NewProxyHandler creates a new ProxyHandler.
func NewProxyHandler(backend port.OCRBackend, exports service.ExportService, publicURL string) *ProxyHandler {
	return &ProxyHandler{backend: backend, exports: exports, publicURL: publicURL}
}

// CreateJob handles POST /api/v1/jobs
// @Summary Create an extraction job
// @Description Re-wraps the uploaded file as multipart and relays the backend's answer verbatim
// @Tags jobs
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Scanned inspection form (PDF, JPG or PNG)"
// @Success 201 {object} CreateJobResponse "Backend job created"
// @Failure 400 {object} ErrorResponseBody "Missing file"
// @Failure 500 {object} ErrorResponseBody "Backend unreachable"
// @Router /jobs [post]
func (h *ProxyHandler) CreateJob(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		HandleError(c, domain.ErrMissingFile)
		return
	}
	defer func() { _ = file.Close() }()

	relay, err := h.backend.CreateJob(c.Request.Context(), port.UploadFile{
		Filename:    header.Filename,
		ContentType: uploadContentType(header.Filename, header.Header.Get("Content-Type")),
		Body:        file,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondRelay(c, relay)
}

// Extract handles POST /api/v1/jobs/:jobId/extract
// @Summary Run extraction for a job
// @Description Extraction always uses the inner_curvature_v1 template
// @Tags jobs
// @Produce json
// @Param jobId path string true "Backend job ID"
// @Success 200 {object} object "Extraction payload"
// @Failure 500 {object} ErrorResponseBody "Backend unreachable"
// @Router /jobs/{jobId}/extract [post]
func (h *ProxyHandler) Extract(c *gin.Context) {
	relay, err := h.backend.Extract(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondRelay(c, relay)
}

// JobAsset handles GET /api/v1/jobs/:jobId/asset/:filename
// @Summary Fetch a job asset
// @Tags assets
// @Produce octet-stream
// @Param jobId path string true "Backend job ID"
// @Param filename path string true "Asset file name"
// @Success 200 {file} binary "Asset bytes"
// @Failure 500 {object} ErrorResponseBody "Backend unreachable"
// @Router /jobs/{jobId}/asset/{filename} [get]
func (h *ProxyHandler) JobAsset(c *gin.Context) {
	h.fetchAsset(c, c.Param("jobId"), c.Param("filename"))
}

// SharedAsset handles GET /api/v1/assets/:filename
// @Summary Fetch a shared backend asset
// @Tags assets
// @Produce octet-stream
// @Param filename path string true "Asset file name"
// @Success 200 {file} binary "Asset bytes"
// @Failure 500 {object} ErrorResponseBody "Backend unreachable"
// @Router /assets/{filename} [get]
func (h *ProxyHandler) SharedAsset(c *gin.Context) {
	h.fetchAsset(c, "", c.Param("filename"))
}

func (h *ProxyHandler) fetchAsset(c *gin.Context, jobID, filename string) {
	relay, err := h.backend.FetchAsset(c.Request.Context(), jobID, filename)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondRelay(c, relay)
}

// ExportExcel handles POST /api/v1/export_excel
// @Summary Export a reviewed document as a workbook
// @Tags export
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param body body ExportRequest true "Job ID and reviewed document"
// @Success 200 {file} binary "Workbook"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 500 {object} ErrorResponseBody "Backend unreachable"
// @Router /export_excel [post]
func (h *ProxyHandler) ExportExcel(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		HandleError(c, domain.ErrMissingJobID)
		return
	}
	if len(req.Reviewed) == 0 || string(req.Reviewed) == "null" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "reviewed document is required")
		return
	}

	relay, err := h.exports.Export(c.Request.Context(), req.JobID, req.Reviewed)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondRelay(c, relay)
}

// Config handles GET /api/v1/config
// @Summary Client configuration
// @Description Returns the backend address browsers should use for direct reads
// @Tags config
// @Produce json
// @Success 200 {object} Response{data=ClientConfig}
// @Router /config [get]
func (h *ProxyHandler) Config(c *gin.Context) {
	RespondOK(c, ClientConfig{BackendBaseURL: h.publicURL, Template: document.InnerCurvatureV1})
}

func uploadContentType(filename, declared string) string {
	if declared != "" {
		return declared
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ct, ok := domain.AllowedUploadExtensions[ext]; ok {
		return ct
	}
	return domain.DefaultAssetContentType
}

// ExportRequest is the body of POST /export_excel.
type ExportRequest struct {
	JobID    string          `json:"jobId" example:"3f2c9a1e"`
	Reviewed json.RawMessage `json:"reviewed" swaggertype:"object"`
}

// ClientConfig is what the browser needs to talk to the backend directly.
type ClientConfig struct {
	BackendBaseURL string `json:"backendBaseUrl" example:"http://127.0.0.1:8000"`
	Template       string `json:"template" example:"inner_curvature_v1"`
}
