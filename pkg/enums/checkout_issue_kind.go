package enums

import "fmt"

// CheckoutIssueKind classifies a per-line validation failure at checkout.
type CheckoutIssueKind string

const (
	CheckoutIssueOutOfStock         CheckoutIssueKind = "out_of_stock"
	CheckoutIssuePriceChanged       CheckoutIssueKind = "price_changed"
	CheckoutIssueProductUnavailable CheckoutIssueKind = "product_unavailable"
)

var validCheckoutIssueKinds = []CheckoutIssueKind{
	CheckoutIssueOutOfStock,
	CheckoutIssuePriceChanged,
	CheckoutIssueProductUnavailable,
}

// String implements fmt.Stringer.
func (c CheckoutIssueKind) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutIssueKind.
func (c CheckoutIssueKind) IsValid() bool {
	for _, candidate := range validCheckoutIssueKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutIssueKind converts raw input into a CheckoutIssueKind.
func ParseCheckoutIssueKind(value string) (CheckoutIssueKind, error) {
	for _, candidate := range validCheckoutIssueKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout issue kind %q", value)
}
