package enums

import "fmt"

// ConfirmationStatus tracks a purchase confirmation token.
type ConfirmationStatus string

const (
	ConfirmationStatusIssued    ConfirmationStatus = "issued"
	ConfirmationStatusConfirmed ConfirmationStatus = "confirmed"
	ConfirmationStatusExpired   ConfirmationStatus = "expired"
)

var validConfirmationStatuses = []ConfirmationStatus{
	ConfirmationStatusIssued,
	ConfirmationStatusConfirmed,
	ConfirmationStatusExpired,
}

// String implements fmt.Stringer.
func (c ConfirmationStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConfirmationStatus.
func (c ConfirmationStatus) IsValid() bool {
	for _, candidate := range validConfirmationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConfirmationStatus converts raw input into a ConfirmationStatus.
func ParseConfirmationStatus(value string) (ConfirmationStatus, error) {
	for _, candidate := range validConfirmationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid confirmation status %q", value)
}
