package errors

import (
	"errors"
)

var (
	// General Errors
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrPathNotAccessible = errors.New("path is not accessible")

	// Compression Errors
	ErrCompressionFailed      = errors.New("compression failed")
	ErrDecompressionFailed    = errors.New("decompression failed")
	ErrUnsupportedCompression = errors.New("unsupported compression format")

	// File & Directory Errors
	ErrFileNotFound    = errors.New("file not found")
	ErrFileReadError   = errors.New("error reading file")
	ErrFileWriteError  = errors.New("error writing to file")
	ErrFileDeleteError = errors.New("error deleting file")
	ErrDirNotFound     = errors.New("directory not found")

	// Hash Errors
	ErrInvalidHasher = errors.New("invalid hasher")
	ErrInvalidHash   = errors.New("invalid hash format")

	// Workflow Definition Errors
	ErrDefinitionNotFound = errors.New("workflow definition not found")
	ErrDefinitionParse    = errors.New("error parsing workflow definition")
	ErrInvalidDefinition  = errors.New("invalid workflow definition")
	ErrInvalidExpression  = errors.New("invalid expression")
	ErrTemplateRender     = errors.New("error rendering input template")
	ErrRequestParse       = errors.New("error parsing request")

	// Ledger Errors
	ErrEntryNotFound   = errors.New("journal entry not found")
	ErrRecordNotFound  = errors.New("record not found")
	ErrLedgerRejected  = errors.New("ledger rejected the operation")
	ErrLedgerOffline   = errors.New("ledger is unreachable")
	ErrMissingField    = errors.New("required field is missing")
	ErrUnbalancedEntry = errors.New("journal entry is not balanced")

	// Rules Errors
	ErrUnknownRuleSet = errors.New("unknown rule set")

	// VirusTotal API Errors
	ErrAPIKeyMissing           = errors.New("API key is required")
	ErrAPIRateLimitExceeded    = errors.New("API rate limit exceeded")
	ErrAPIAuthenticationFailed = errors.New("VirusTotal API authentication failed")
	ErrAPIQuotaExceeded        = errors.New("VirusTotal API quota exceeded")
	ErrAPICommunicationError   = errors.New("error communicating with VirusTotal API")

	// Output Errors
	ErrUnsupportedOutputFormat = errors.New("unsupported output format")

	// Configuration Errors
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrNotInitialized = errors.New("component not initialized")
)
