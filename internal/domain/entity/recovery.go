package entity

import "errors"

// RecoveryRequest is the wire-level input contract from the orchestrating
// caller. FailedSuggestions may hold plain strings or locator objects.
type RecoveryRequest struct {
	MissingElement    string `json:"missing_element"`
	ErrorMessage      string `json:"error_message"`
	PageSource        string `json:"page_source"`
	Platform          string `json:"platform"`
	RetryCount        int    `json:"retry_count,omitempty"`
	FailedSuggestions []any  `json:"failed_suggestions,omitempty"`
}

// Input errors are the only conditions surfaced to the caller as errors;
// every other failure mode degrades to an empty locator.
var (
	ErrNoElement  = errors.New("no missing element provided")
	ErrNoSnapshot = errors.New("no page source provided")
)

// Oracle errors are recovered internally (logged, never fatal).
var (
	ErrOracleUnavailable = errors.New("suggestion oracle unavailable")
	ErrNoSuggestion      = errors.New("oracle produced no usable suggestion")
)
