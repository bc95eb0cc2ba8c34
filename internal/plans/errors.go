package plans

import "errors"

var (
	// ErrMissingPrompt is returned when a draft request has no prompt text.
	ErrMissingPrompt = errors.New("prompt is required")

	ErrPromptTooLong = errors.New("prompt is too long")

	// ErrQuotaExceeded is returned when every language model provider refused the request
	// for rate or quota reasons.
	ErrQuotaExceeded = errors.New("plan drafting quota exceeded, try again later")
)
