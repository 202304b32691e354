package entity

import "errors"

// Failure kinds surfaced by the issuance core. The transport maps these to
// user-facing messages; anything else is treated as an internal error and
// never shown raw in chat.
var (
	// ErrQuotaExceeded: the user already received a code within the
	// trailing weekly window.
	ErrQuotaExceeded = errors.New("weekly invite quota exceeded")

	// ErrCaptchaMismatch covers both a wrong answer and an expired
	// challenge; the two are indistinguishable to the user.
	ErrCaptchaMismatch = errors.New("captcha verification failed")

	// ErrIssuanceFailed: the instance API call failed or returned an
	// unusable response. Nothing was recorded; the user may retry.
	ErrIssuanceFailed = errors.New("invite code allocation failed")

	// ErrStoreUnavailable: the backing key-value store is unreachable.
	ErrStoreUnavailable = errors.New("storage unavailable")
)
