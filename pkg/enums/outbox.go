package enums

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateSupportTicket OutboxAggregateType = "support_ticket"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateSupportTicket}

func (a OutboxAggregateType) IsValid() bool { return oneOf(a, aggregateTypes) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parseOneOf(raw, aggregateTypes, "aggregate type")
}

// OutboxEventType is the routing key consumers switch on.
type OutboxEventType string

const (
	EventOrderCreated               OutboxEventType = "order_created"
	EventOrderStatusChanged         OutboxEventType = "order_status_changed"
	EventSupportTicketStatusChanged OutboxEventType = "support_ticket_status_changed"
)

var eventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventSupportTicketStatusChanged,
}

func (e OutboxEventType) IsValid() bool { return oneOf(e, eventTypes) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parseOneOf(raw, eventTypes, "event type")
}

// OutboxDLQErrorReason records why the relay gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return oneOf(r, []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable})
}
