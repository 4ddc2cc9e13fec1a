package enums

import "fmt"

// DeliveryStatus is the lifecycle state of a delivery request.
//
// Forward transitions: created -> assigned -> in_transit -> delivered
// -> confirmed (store purchases only). Any non-terminal state may move to
// cancelled. Deliveries never move backward.
type DeliveryStatus string

const (
	DeliveryStatusCreated   DeliveryStatus = "created"
	DeliveryStatusAssigned  DeliveryStatus = "assigned"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusConfirmed DeliveryStatus = "confirmed"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusCreated,
	DeliveryStatusAssigned,
	DeliveryStatusInTransit,
	DeliveryStatusDelivered,
	DeliveryStatusConfirmed,
	DeliveryStatusCancelled,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (d DeliveryStatus) IsTerminal() bool {
	return d == DeliveryStatusConfirmed || d == DeliveryStatusCancelled
}

// CanTransitionTo reports whether the target status is reachable from the
// current one in a single step.
func (d DeliveryStatus) CanTransitionTo(target DeliveryStatus) bool {
	if target == DeliveryStatusCancelled {
		return !d.IsTerminal()
	}
	switch d {
	case DeliveryStatusCreated:
		return target == DeliveryStatusAssigned
	case DeliveryStatusAssigned:
		return target == DeliveryStatusInTransit
	case DeliveryStatusInTransit:
		return target == DeliveryStatusDelivered
	case DeliveryStatusDelivered:
		return target == DeliveryStatusConfirmed
	default:
		return false
	}
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
