// Package chaterr defines the typed error taxonomy for the guest chat
// client. Every failure the protocol engine can surface is one of these
// types, so callers branch with errors.As instead of string matching.
package chaterr

import "fmt"

// BillingKind distinguishes why the host's billing state halted the chat.
type BillingKind string

const (
	BillingCancelled    BillingKind = "cancelled"
	BillingTrialLimit   BillingKind = "trial_limit"
	BillingTrialExpired BillingKind = "trial_expired"
)

// MediaKind distinguishes audio capture failures.
type MediaKind string

const (
	MediaPermissionDenied MediaKind = "permission_denied"
	MediaNoDevice         MediaKind = "no_device"
	MediaUnsupported      MediaKind = "unsupported"
	MediaEmptyRecording   MediaKind = "empty_recording"
)

// IdentityError is returned when an operation requires a resolved guest
// identity (or at least one contact method) and none is available.
type IdentityError struct {
	Reason string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("identity: %s", e.Reason)
}

// BillingError means the host's subscription or trial allowance blocked the
// request (HTTP 403, or 429 on a send).
type BillingError struct {
	Kind    BillingKind
	Message string // server's human-readable message, verbatim
}

func (e *BillingError) Error() string {
	return fmt.Sprintf("billing (%s): %s", e.Kind, e.Message)
}

// QuotaError means conversation creation was rejected because the guest
// already holds the maximum number of conversations (HTTP 429 on creation).
// Distinct from the message quota, which is a BillingError.
type QuotaError struct {
	Message string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("conversation quota: %s", e.Message)
}

// LockError means the moderation system suspended the conversation
// (HTTP 423). Reason is the display text supplied by the moderation backend.
type LockError struct {
	Reason string
}

func (e *LockError) Error() string {
	return fmt.Sprintf("conversation locked: %s", e.Reason)
}

// MediaError covers audio capture failures. Scoped to a single capture
// attempt; the caller may retry immediately.
type MediaError struct {
	Kind   MediaKind
	Detail string
}

func (e *MediaError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("media (%s)", e.Kind)
	}
	return fmt.Sprintf("media (%s): %s", e.Kind, e.Detail)
}

// TransientError is any other failed request. Not retried automatically.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
