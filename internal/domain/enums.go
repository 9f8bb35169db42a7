package domain

// JobState is the lifecycle state of one review session's extraction.
type JobState string

const (
	JobStateIdle    JobState = "idle"
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateError   JobState = "error"
)

// AuditAction identifies what a review audit entry records.
type AuditAction string

const (
	AuditActionExtractDone  AuditAction = "extract_done"
	AuditActionExtractError AuditAction = "extract_error"
	AuditActionCellEdit     AuditAction = "cell_edit"
	AuditActionExport       AuditAction = "export"
)

// AllowedUploadExtensions maps lowercase extensions (without dot) to the
// content type assumed when the browser omits one.
var AllowedUploadExtensions = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// SpreadsheetContentType is the MIME type of exported workbooks.
const SpreadsheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultAssetContentType is relayed when the backend omits a content type.
const DefaultAssetContentType = "application/octet-stream"
