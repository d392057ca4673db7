package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
)

// errOp names the backend operation for error classification. The same
// status code means different things at different call sites: 429 on a send
// is a message quota, 429 on conversation creation is the per-guest
// conversation quota.
type errOp string

const (
	opChatInfo           errOp = "api: chat info"
	opIdentify           errOp = "api: identify guest"
	opCreateConversation errOp = "api: create conversation"
	opListMessages       errOp = "api: list messages"
	opSend               errOp = "api: send message"
	opStatus             errOp = "api: status"
	opCheckin            errOp = "api: checkin documents"
)

// errorBody is the backend's error response shape. Some deployments use
// "detail", others "message".
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// readErrorMessage extracts the human-readable message from an error
// response body, falling back to the raw body text.
func readErrorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return ""
	}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(data))
}

// decodeError maps a non-2xx response to the chaterr taxonomy:
//
//	403              -> BillingError, sub-kind from the message text
//	429 on creation  -> QuotaError (conversation count)
//	429 elsewhere    -> BillingError trial_limit (message quota)
//	423              -> LockError with the moderation reason
//	anything else    -> TransientError
func decodeError(op errOp, resp *http.Response) error {
	msg := readErrorMessage(resp)

	switch resp.StatusCode {
	case http.StatusForbidden:
		return &chaterr.BillingError{
			Kind:    chaterr.ClassifyBillingMessage(msg),
			Message: msg,
		}
	case http.StatusTooManyRequests:
		if op == opCreateConversation {
			return &chaterr.QuotaError{Message: msg}
		}
		return &chaterr.BillingError{
			Kind:    chaterr.BillingTrialLimit,
			Message: msg,
		}
	case http.StatusLocked:
		return &chaterr.LockError{Reason: msg}
	default:
		return &chaterr.TransientError{
			Op:  string(op),
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg),
		}
	}
}

// transientErr wraps a transport-level failure.
func transientErr(op errOp, err error) error {
	return &chaterr.TransientError{Op: string(op), Err: err}
}
