package wallet

// Operation names used for metrics and logs.
const (
	opCredit     = "credit"
	opDebit      = "debit"
	opTopUp      = "top_up"
	opAutoRefill = "auto_refill"
	opRefill     = "manual_refill"
	opSettle     = "settle_sale"
)

// Refill triggers.
const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
)

// Paging defaults for history queries.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// sweepBatchSize caps how many users one refill sweep visits.
const sweepBatchSize = 500

// Refill outcomes reported in RefillResult.Reason.
const (
	ReasonRefilled       = "balance refilled to target"
	ReasonAboveThreshold = "balance is not below the refill threshold"
	ReasonAtTarget       = "balance already at or above the refill target"
	ReasonLimitReached   = "daily refill limit reached"
)
