// Package errors provides structured error handling for saesagent.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Data errors (records, corpus, index artifacts)
//   - 3XX: Upstream service errors (generation, embeddings, database)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryData       Category = "DATA"
	CategoryUpstream   Category = "UPSTREAM"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts startup of the owning subsystem.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the current operation.
	SeverityError Severity = "ERROR"
	// SeverityWarning means the answer is degraded but still served.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigNotFound = "ERR_102_CONFIG_NOT_FOUND"

	// Data errors (200-299)
	ErrCodeRecordNotFound = "ERR_201_RECORD_NOT_FOUND"
	ErrCodeCorruptIndex   = "ERR_205_CORRUPT_INDEX"
	ErrCodeCorpusMissing  = "ERR_206_CORPUS_MISSING"
	ErrCodeIndexMissing   = "ERR_207_INDEX_MISSING"

	// Upstream errors (300-399)
	ErrCodeGenerationFailed  = "ERR_301_GENERATION_FAILED"
	ErrCodeGenerationTimeout = "ERR_302_GENERATION_TIMEOUT"
	ErrCodeEmbeddingFailed   = "ERR_303_EMBEDDING_FAILED"
	ErrCodeDatabase          = "ERR_304_DATABASE"
	ErrCodeRateLimited       = "ERR_305_RATE_LIMITED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeUnknownUserType   = "ERR_403_UNKNOWN_USER_TYPE"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeRetrievalFailed = "ERR_502_RETRIEVAL_FAILED"
	ErrCodeQueueStopped    = "ERR_503_QUEUE_STOPPED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryData
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeCorpusMissing, ErrCodeIndexMissing:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether an upstream call with this code may be retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeGenerationFailed, ErrCodeEmbeddingFailed, ErrCodeDatabase, ErrCodeRateLimited:
		return true
	default:
		return false
	}
}
