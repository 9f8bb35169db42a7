package handler

import (
	"formscan/internal/document"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// OpenSessionRequest represents the open session request body.
type OpenSessionRequest struct {
	JobID string `json:"jobId" binding:"required" example:"3f2c9a1e"`
}

// EditCellRequest represents the cell edit request body. An absent value
// clears the cell to null.
type EditCellRequest struct {
	Path  string         `json:"path" binding:"required" example:"table.rows.0.lu.1"`
	Value document.Value `json:"value" swaggertype:"string" example:"+1"`
}

// --- Response Types ---

// Response is the generic success envelope.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponseBody is the error envelope.
type ErrorResponseBody struct {
	Success bool     `json:"success" example:"false"`
	Error   APIError `json:"error"`
}

// MessageResponse carries a plain message.
type MessageResponse struct {
	Success bool `json:"success" example:"true"`
	Data    struct {
		Message string `json:"message" example:"session closed"`
	} `json:"data"`
}

// CreateJobResponse is the backend's job creation answer.
type CreateJobResponse struct {
	JobID    string `json:"jobId" example:"3f2c9a1e"`
	Template string `json:"template,omitempty" example:"inner_curvature_v1"`
}
