package errors

var (
	ErrSelfPurchase = &DomainError{
		Kind:    KindSelfPurchase,
		Message: "you cannot buy your own listing",
	}
	ErrAlreadySold = &DomainError{
		Kind:    KindAlreadySold,
		Message: "listing already sold",
	}
	ErrDuplicateRequest = &DomainError{
		Kind:    KindDuplicateRequest,
		Message: "you already have an open request for this listing",
	}
	ErrForbidden = &DomainError{
		Kind:    KindForbidden,
		Message: "you are not allowed to act on this resource",
	}
	ErrListingNotFound = &DomainError{
		Kind:    KindNotFound,
		Message: "listing not found",
	}
	ErrRequestNotFound = &DomainError{
		Kind:    KindNotFound,
		Message: "purchase request not found",
	}
	ErrInvalidState = &DomainError{
		Kind:    KindInvalidState,
		Message: "purchase request is no longer pending",
	}
	ErrAbuseSuspected = &DomainError{
		Kind:    KindAbuseSuspected,
		Message: "trade blocked by abuse detection",
	}
	ErrTransferFailed = &DomainError{
		Kind:    KindTransferFailed,
		Message: "transfer failed, no funds were moved",
	}
)
