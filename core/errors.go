package core

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNoChallenge         = errors.New("no challenge issued")
	ErrSignerUnavailable   = errors.New("signer unavailable")
	ErrUserRejected        = errors.New("user rejected request")
	ErrAuthRejected        = errors.New("authentication rejected")
	ErrNoSession           = errors.New("no active session")
	ErrStoreFailure        = errors.New("session store failure")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNetworkUnavailable  = errors.New("network unavailable")
	ErrPayloadStripFailure = errors.New("payload strip failure")
	ErrPayloadMismatch     = errors.New("payload does not match its types")
	ErrMalformedSignature  = errors.New("malformed signature")
	ErrContractRejected    = errors.New("contract rejected call")
	ErrInvalidPayload      = errors.New("invalid payload value")
	ErrSubmitFailure       = errors.New("transaction could not be sent")
)

// Stage names the pipeline stage an error was raised in.
type Stage string

const (
	StageAuth    Stage = "auth"
	StageRequest Stage = "request"
	StageSign    Stage = "sign"
	StageCodec   Stage = "codec"
	StageSubmit  Stage = "submit"
)

// Error is a classified pipeline error. Kind is one of the Err* sentinels.
type Error struct {
	Stage  Stage
	Kind   error
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// NewError builds a classified error.
func NewError(stage Stage, kind error, detail string, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Detail: detail, Err: err}
}

// Reclassify keeps the kind of err when it already carries one of kinds and
// otherwise classifies it as fallback. The result is always raised at stage.
func Reclassify(stage Stage, err error, fallback error, kinds ...error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			var e *Error
			if errors.As(err, &e) && e.Stage == stage && e.Kind == kind {
				return err
			}
			return NewError(stage, kind, "", err)
		}
	}
	return NewError(stage, fallback, "", err)
}

// IsRetryable reports whether err is a transport failure the caller may retry.
// User interaction failures and rejections are terminal for the attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetworkUnavailable)
}

// StageOf returns the stage of the outermost classified error in err.
func StageOf(err error) (Stage, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage, true
	}
	return "", false
}

// RevertError is a contract revert. It matches ErrContractRejected.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return "reverted: " + e.Reason
}

func (e *RevertError) Is(target error) bool {
	return target == ErrContractRejected
}

// ContractRejected builds the submit-stage error for a revert with reason.
func ContractRejected(reason string) error {
	return &Error{Stage: StageSubmit, Kind: ErrContractRejected, Err: &RevertError{Reason: reason}}
}

// RevertReason extracts the contract revert reason from err.
func RevertReason(err error) (string, bool) {
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev.Reason, true
	}
	return "", false
}
