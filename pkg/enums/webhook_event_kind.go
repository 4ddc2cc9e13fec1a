package enums

import "fmt"

// WebhookEventKind identifies a lifecycle milestone fanned out to listeners.
type WebhookEventKind string

const (
	WebhookEventOrderCreated         WebhookEventKind = "order.created"
	WebhookEventDeliveryCreated      WebhookEventKind = "delivery.created"
	WebhookEventDeliveryAssigned     WebhookEventKind = "delivery.assigned"
	WebhookEventDeliveryInTransit    WebhookEventKind = "delivery.in_transit"
	WebhookEventDeliveryDelivered    WebhookEventKind = "delivery.delivered"
	WebhookEventDeliveryConfirmed    WebhookEventKind = "delivery.confirmed"
	WebhookEventDeliveryCancelled    WebhookEventKind = "delivery.cancelled"
	WebhookEventConfirmationIssued   WebhookEventKind = "confirmation.issued"
	WebhookEventConfirmationReminder WebhookEventKind = "confirmation.reminder"
	WebhookEventConfirmationExpired  WebhookEventKind = "confirmation.expired"
)

var validWebhookEventKinds = []WebhookEventKind{
	WebhookEventOrderCreated,
	WebhookEventDeliveryCreated,
	WebhookEventDeliveryAssigned,
	WebhookEventDeliveryInTransit,
	WebhookEventDeliveryDelivered,
	WebhookEventDeliveryConfirmed,
	WebhookEventDeliveryCancelled,
	WebhookEventConfirmationIssued,
	WebhookEventConfirmationReminder,
	WebhookEventConfirmationExpired,
}

// String implements fmt.Stringer.
func (w WebhookEventKind) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookEventKind.
func (w WebhookEventKind) IsValid() bool {
	for _, candidate := range validWebhookEventKinds {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookEventKind converts raw input into a WebhookEventKind.
func ParseWebhookEventKind(value string) (WebhookEventKind, error) {
	for _, candidate := range validWebhookEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event kind %q", value)
}
