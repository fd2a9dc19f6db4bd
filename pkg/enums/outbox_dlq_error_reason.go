package enums

// OutboxDLQErrorReason records why a loyalty or barcode event left the outbox
// without being delivered.
type OutboxDLQErrorReason string

const (
	// Delivery kept failing until the attempt budget ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// The row itself is unusable: unknown event type, aggregate mismatch or a
	// payload that no longer decodes.
	OutboxDLQReasonUnresolvable OutboxDLQErrorReason = "unresolvable"
	// The row was fine but the topic refused it or has no publisher.
	OutboxDLQReasonRejected OutboxDLQErrorReason = "rejected"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonUnresolvable,
	OutboxDLQReasonRejected,
}

func (r OutboxDLQErrorReason) String() string {
	return string(r)
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// Replayable reports whether re-enqueueing the same payload can succeed once
// the broker side is fixed. Unresolvable rows need a code change first.
func (r OutboxDLQErrorReason) Replayable() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonRejected
}
