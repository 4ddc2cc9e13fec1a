package enums

import "fmt"

// DeliveryKind distinguishes the two delivery request variants.
type DeliveryKind string

const (
	DeliveryKindStorePurchase DeliveryKind = "store_purchase"
	DeliveryKindUserToUser    DeliveryKind = "user_to_user"
)

var validDeliveryKinds = []DeliveryKind{
	DeliveryKindStorePurchase,
	DeliveryKindUserToUser,
}

// String implements fmt.Stringer.
func (d DeliveryKind) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryKind.
func (d DeliveryKind) IsValid() bool {
	for _, candidate := range validDeliveryKinds {
		if candidate == d {
			return true
		}
	}
	return false
}

// RequiresConfirmation reports whether deliveries of this kind end with a
// store-owner purchase confirmation instead of at delivered.
func (d DeliveryKind) RequiresConfirmation() bool {
	return d == DeliveryKindStorePurchase
}

// ParseDeliveryKind converts raw input into a DeliveryKind.
func ParseDeliveryKind(value string) (DeliveryKind, error) {
	for _, candidate := range validDeliveryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery kind %q", value)
}
