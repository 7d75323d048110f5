package order

import "fmt"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusPlaced     Status = "PLACED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions encodes the legal order lifecycle. DELIVERED, FAILED and
// CANCELLED are terminal; cancellation is reachable from every non-terminal
// status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusPlaced, StatusFailed, StatusCancelled},
	StatusPlaced:     {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("order: unknown status %q", s)
	}
	return status, nil
}

// CanTransitionTo reports whether moving to next is legal from s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
