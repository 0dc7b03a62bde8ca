package errors

var (
	ErrInvalidAmount = &DomainError{
		Kind:    KindInvalidAmount,
		Message: "amount must be greater than zero",
	}
	ErrInsufficientFunds = &DomainError{
		Kind:    KindInsufficientFunds,
		Message: "insufficient wallet balance",
	}
	ErrDailyCreditLimitExceeded = &DomainError{
		Kind:    KindDailyCreditLimitExceeded,
		Message: "daily credit limit exceeded",
	}
	ErrBalanceCapExceeded = &DomainError{
		Kind:    KindBalanceCapExceeded,
		Message: "resulting balance would exceed the wallet cap",
	}
	ErrTopUpCountExceeded = &DomainError{
		Kind:    KindTopUpCountExceeded,
		Message: "daily top-up count exceeded",
	}
	ErrRefillLimitExceeded = &DomainError{
		Kind:    KindRefillLimitExceeded,
		Message: "daily refill limit reached",
	}
	ErrUserNotFound = &DomainError{
		Kind:    KindNotFound,
		Message: "user not found",
	}
	ErrRateLimited = &DomainError{
		Kind:    KindRateLimited,
		Message: "rate limit exceeded",
	}
)
