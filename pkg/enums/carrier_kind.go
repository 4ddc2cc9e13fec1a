package enums

import "fmt"

// CarrierKind is the tagged variant of a carrier profile. Each kind maps to
// one driver-class role and its profile shape.
type CarrierKind string

const (
	CarrierKindDriver     CarrierKind = "driver"
	CarrierKindTaxiDriver CarrierKind = "taxi_driver"
	CarrierKindDispatch   CarrierKind = "dispatch"
)

var validCarrierKinds = []CarrierKind{
	CarrierKindDriver,
	CarrierKindTaxiDriver,
	CarrierKindDispatch,
}

// String implements fmt.Stringer.
func (c CarrierKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CarrierKind.
func (c CarrierKind) IsValid() bool {
	for _, candidate := range validCarrierKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ForRole maps a driver-class role to its carrier profile kind.
func CarrierKindForRole(role UserRole) (CarrierKind, bool) {
	switch role {
	case UserRoleDriver:
		return CarrierKindDriver, true
	case UserRoleTaxiDriver:
		return CarrierKindTaxiDriver, true
	case UserRoleDispatcher:
		return CarrierKindDispatch, true
	default:
		return "", false
	}
}

// ParseCarrierKind converts raw input into a CarrierKind.
func ParseCarrierKind(value string) (CarrierKind, error) {
	for _, candidate := range validCarrierKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid carrier kind %q", value)
}
