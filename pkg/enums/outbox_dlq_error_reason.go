package enums

// OutboxDLQErrorReason explains why an outbox row stopped being retried.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var dlqReasons = newClosedSet("dead-letter reason", OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable)

func (r OutboxDLQErrorReason) String() string { return string(r) }

func (r OutboxDLQErrorReason) IsValid() bool { return dlqReasons.has(r) }
