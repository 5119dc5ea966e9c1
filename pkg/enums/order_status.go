package enums

// OrderStatus tracks the lifecycle of a booking.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// orderTransitions lists the conventional forward edges. Terminal states have none.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusCompleted, OrderStatusCancelled},
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return oneOf(s, orderStatuses) }

// IsTerminal reports whether no further transitions are conventional.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is a legal edge in the transition table.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return oneOf(next, orderTransitions[s])
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	return parseOneOf(raw, orderStatuses, "order status")
}

// TransitionPolicy decides which status changes are accepted.
type TransitionPolicy string

const (
	// TransitionPolicyPermissive accepts any valid status to any valid status.
	TransitionPolicyPermissive TransitionPolicy = "permissive"
	// TransitionPolicyStrict only accepts edges from the transition table.
	TransitionPolicyStrict TransitionPolicy = "strict"
)

// Allows reports whether the policy accepts moving from -> to. Unknown
// statuses are never allowed.
func (p TransitionPolicy) Allows(from, to OrderStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if p == TransitionPolicyStrict {
		return from.CanTransitionTo(to)
	}
	return true
}
