package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Vault errors
	ErrVaultNotFound     = "VAULT_NOT_FOUND"
	ErrVaultNotSpecified = "VAULT_NOT_SPECIFIED"
	ErrConfigInvalid     = "CONFIG_INVALID"

	// Reference errors
	ErrRefNotFound  = "REF_NOT_FOUND"
	ErrRefInvalid   = "REF_INVALID"
	ErrRefAmbiguous = "REF_AMBIGUOUS"

	// File errors
	ErrFileNotFound     = "FILE_NOT_FOUND"
	ErrFileExists       = "FILE_EXISTS"
	ErrFileWriteError   = "FILE_WRITE_ERROR"
	ErrFileOutsideVault = "FILE_OUTSIDE_VAULT"

	// Database errors
	ErrDatabaseError = "DATABASE_ERROR"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// Check errors
	ErrCheckFailed = "CHECK_FAILED"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnRefAmbiguous      = "REF_AMBIGUOUS"
	WarnSlugCollision     = "SLUG_COLLISION"
	WarnIndexUpdateFailed = "INDEX_UPDATE_FAILED"
	WarnWriteFailed       = "WRITE_FAILED"
)
