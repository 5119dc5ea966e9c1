package enums

// TicketStatus tracks a support ticket. Either status may follow the other.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusResolved TicketStatus = "resolved"
)

var ticketStatuses = []TicketStatus{TicketStatusOpen, TicketStatusResolved}

func (s TicketStatus) String() string { return string(s) }

func (s TicketStatus) IsValid() bool { return oneOf(s, ticketStatuses) }

func ParseTicketStatus(raw string) (TicketStatus, error) {
	return parseOneOf(raw, ticketStatuses, "ticket status")
}
