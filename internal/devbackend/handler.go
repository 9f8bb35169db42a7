// Package devbackend is a local stand-in for the OCR backend. It speaks the
// same HTTP contract as the real service: jobs are stored on disk and
// extraction returns a prepared or blank payload.
package devbackend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"formscan/internal/document"
	"formscan/internal/domain"
	"formscan/internal/middleware"
	"formscan/internal/xlsxexport"
)

// Handler serves the backend routes.
type Handler struct {
	store *JobStore
}

// NewHandler creates a new Handler.
func NewHandler(store *JobStore) *Handler {
	return &Handler{store: store}
}

// NewRouter builds the stand-in backend engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	r.GET("/health", h.Health)
	r.POST("/v1/jobs", h.CreateJob)
	r.POST("/v1/jobs/:jobId/extract", h.Extract)
	r.GET("/v1/jobs/:jobId/asset/:filename", h.JobAsset)
	r.GET("/assets/:filename", h.SharedAsset)
	r.POST("/v1/export_excel", h.ExportExcel)
	return r
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CreateJob handles POST /v1/jobs. It only stores the upload.
func (h *Handler) CreateJob(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil || fh.Filename == "" {
		detail(c, http.StatusBadRequest, "No filename")
		return
	}
	f, err := fh.Open()
	if err != nil {
		detail(c, http.StatusBadRequest, "Empty upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		detail(c, http.StatusBadRequest, "Empty upload")
		return
	}

	jobID, err := h.store.Create(fh.Filename, data)
	if err != nil {
		log.Printf("devbackend.CreateJob: %v", err)
		detail(c, http.StatusInternalServerError, "Could not store upload")
		return
	}
	log.Printf("devbackend.CreateJob: job %s stored (%s, %d bytes)", jobID, fh.Filename, len(data))
	c.JSON(http.StatusOK, gin.H{"jobId": jobID, "template": document.InnerCurvatureV1})
}

// Extract handles POST /v1/jobs/:jobId/extract
func (h *Handler) Extract(c *gin.Context) {
	jobID := c.Param("jobId")
	dir, ok := h.store.JobDir(jobID)
	if !ok {
		detail(c, http.StatusNotFound, "Job not found")
		return
	}
	if tmpl := c.Query("template"); tmpl != "" {
		if _, err := document.LookupTemplate(tmpl); err != nil {
			detail(c, http.StatusBadRequest, fmt.Sprintf("Unknown template: %s", tmpl))
			return
		}
	}

	payload, err := Extraction(dir, jobID)
	if err != nil {
		log.Printf("devbackend.Extract: job %s: %v", jobID, err)
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// JobAsset handles GET /v1/jobs/:jobId/asset/:filename
func (h *Handler) JobAsset(c *gin.Context) {
	dir, ok := h.store.JobDir(c.Param("jobId"))
	if !ok {
		detail(c, http.StatusNotFound, "Asset not found")
		return
	}
	p, ok := AssetPath(dir, c.Param("filename"))
	if !ok {
		detail(c, http.StatusNotFound, "Asset not found")
		return
	}
	c.File(p)
}

// SharedAsset handles GET /assets/:filename
func (h *Handler) SharedAsset(c *gin.Context) {
	p, ok := AssetPath(h.store.SharedDir(), c.Param("filename"))
	if !ok {
		detail(c, http.StatusNotFound, "Asset not found")
		return
	}
	c.File(p)
}

type exportRequest struct {
	JobID    string          `json:"jobId"`
	Reviewed json.RawMessage `json:"reviewed"`
}

// ExportExcel handles POST /v1/export_excel
func (h *Handler) ExportExcel(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.JobID = strings.TrimSpace(req.JobID)
	if req.JobID == "" {
		detail(c, http.StatusBadRequest, "Missing jobId")
		return
	}

	doc, err := document.Decode(req.JobID, req.Reviewed, document.DecodeOptions{})
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tmpl, err := doc.Template()
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := xlsxexport.Write(&buf, doc); err != nil {
		log.Printf("devbackend.ExportExcel: job %s: %v", req.JobID, err)
		detail(c, http.StatusInternalServerError, "Could not build workbook")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tmpl.ExportFilename(req.JobID)))
	c.Data(http.StatusOK, domain.SpreadsheetContentType, buf.Bytes())
}
