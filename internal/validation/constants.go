package validation

const (
	// String lengths
	MaxTitleLength   = 200
	MaxNoteLength    = 500
	MaxReasonLength  = 200
	MaxMessageLength = 2000
	MaxIDLength      = 36
)
