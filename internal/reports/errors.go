package reports

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrSaveFailed     = errors.New("failed to save analysis")
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrQueueDisabled  = errors.New("job queue not configured")
	ErrStoreDisabled  = errors.New("object store not configured")
	ErrEmptyText      = errors.New("report text is required")
	ErrInvalidInput   = errors.New("invalid input")
	ErrForbidden      = errors.New("report belongs to another profile")
)

const (
	ErrorCodeValidation = "validation_error"
	ErrorCodeNotFound   = "not_found"
	ErrorCodeLLM        = "llm_error"
	ErrorCodeStorage    = "storage_error"
	ErrorCodeInternal   = "internal_error"
)

// RejectionMessage is the outcome error for documents that fail the gate.
const RejectionMessage = "Document is not a medical report"
