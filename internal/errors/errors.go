// Package errors defines the machine-readable failures returned by the
// marketplace core. Every business-rule violation is a *DomainError whose
// Kind is stable across releases and safe to expose to API clients.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kind classifies a DomainError.
type Kind string

const (
	KindInvalidAmount            Kind = "InvalidAmount"
	KindInsufficientFunds        Kind = "InsufficientFunds"
	KindDailyCreditLimitExceeded Kind = "DailyCreditLimitExceeded"
	KindBalanceCapExceeded       Kind = "BalanceCapExceeded"
	KindTopUpCountExceeded       Kind = "TopUpCountExceeded"
	KindRefillLimitExceeded      Kind = "RefillLimitExceeded"
	KindSelfPurchase             Kind = "SelfPurchase"
	KindAlreadySold              Kind = "AlreadySold"
	KindDuplicateRequest         Kind = "DuplicateRequest"
	KindForbidden                Kind = "Forbidden"
	KindUnauthorized             Kind = "Unauthorized"
	KindNotFound                 Kind = "NotFound"
	KindInvalidState             Kind = "InvalidState"
	KindAbuseSuspected           Kind = "AbuseSuspected"
	KindRateLimited              Kind = "RateLimited"
	KindTransferFailed           Kind = "TransferFailed"
	KindValidation               Kind = "Validation"
	KindCanceled                 Kind = "Canceled"
	KindInternal                 Kind = "Internal"
)

// DomainError is a typed business failure.
type DomainError struct {
	Kind    Kind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError of the same kind, so callers can compare
// against the package sentinels regardless of the message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a DomainError.
func New(kind Kind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

// Newf creates a DomainError with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first DomainError in err's chain. A
// cancelled caller context is KindCanceled; anything else is KindInternal.
func KindOf(err error) Kind {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Kind
	}
	if stderrors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
