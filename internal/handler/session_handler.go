package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"formscan/internal/middleware"
	"formscan/internal/service"
)

// SessionHandler handles review session endpoints.
type SessionHandler struct {
	reviews service.ReviewService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(reviews service.ReviewService) *SessionHandler {
	return &SessionHandler{reviews: reviews}
}

// Open handles POST /api/v1/sessions
// @Summary Open a review session
// @Description Starts extraction of the job on first observation
// @Tags sessions
// @Accept json
// @Produce json
// @Param body body OpenSessionRequest true "Job to review"
// @Success 201 {object} Response{data=service.SessionSnapshot} "Session opened"
// @Failure 400 {object} ErrorResponseBody "Missing jobId"
// @Security BearerAuth
// @Router /sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	snap, err := h.reviews.Open(c.Request.Context(), req.JobID, middleware.GetOperator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, snap)
}

// Get handles GET /api/v1/sessions/:id
// @Summary Get a review session
// @Description State, verbatim backend error, document and advisories
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=service.SessionSnapshot}
// @Failure 404 {object} ErrorResponseBody "Session not found"
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	snap, err := h.reviews.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// Retry handles POST /api/v1/sessions/:id/retry
// @Summary Retry extraction
// @Description Allowed from the idle and error states only
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=service.SessionSnapshot}
// @Failure 409 {object} ErrorResponseBody "Extraction running or done"
// @Security BearerAuth
// @Router /sessions/{id}/retry [post]
func (h *SessionHandler) Retry(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	snap, err := h.reviews.Retry(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// EditCell handles PATCH /api/v1/sessions/:id/cells
// @Summary Edit one cell
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body EditCellRequest true "Cell path and new value"
// @Success 200 {object} Response{data=service.CellEditResult}
// @Failure 400 {object} ErrorResponseBody "Invalid path or value"
// @Failure 409 {object} ErrorResponseBody "No document yet"
// @Security BearerAuth
// @Router /sessions/{id}/cells [patch]
func (h *SessionHandler) EditCell(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	var req EditCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.reviews.EditCell(c.Request.Context(), id, req.Path, req.Value)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Export handles POST /api/v1/sessions/:id/export
// @Summary Export the reviewed document
// @Description Relays the backend workbook; advisories never block an export
// @Tags sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Success 200 {file} binary "Workbook"
// @Failure 409 {object} ErrorResponseBody "No document yet"
// @Failure 500 {object} ErrorResponseBody "Backend unreachable"
// @Security BearerAuth
// @Router /sessions/{id}/export [post]
func (h *SessionHandler) Export(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	relay, err := h.reviews.Export(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondRelay(c, relay)
}

// Close handles DELETE /api/v1/sessions/:id
// @Summary Close a review session
// @Description A pending extraction is discarded when it completes
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponseBody "Session not found"
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}
	if err := h.reviews.Close(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "session closed"})
}

// ListAudit handles GET /api/v1/sessions/:id/audit
// @Summary List a session's audit trail
// @Description Extraction outcomes, cell edits and exports, newest first
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit" default(20)
// @Success 200 {object} Response{data=[]domain.ReviewAuditEntry}
// @Failure 400 {object} ErrorResponseBody "Invalid session ID"
// @Security BearerAuth
// @Router /sessions/{id}/audit [get]
func (h *SessionHandler) ListAudit(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	offset, limit := parsePagination(c)

	entries, total, err := h.reviews.ListAudit(c.Request.Context(), id, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, entries, PagMeta{Total: total, Offset: offset, Limit: limit})
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}
