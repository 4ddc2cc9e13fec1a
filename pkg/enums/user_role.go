package enums

import "fmt"

// UserRole is the platform-level role attached to an authenticated principal.
type UserRole string

const (
	UserRoleCustomer   UserRole = "customer"
	UserRoleStoreOwner UserRole = "store_owner"
	UserRoleDriver     UserRole = "driver"
	UserRoleTaxiDriver UserRole = "taxi_driver"
	UserRoleDispatcher UserRole = "dispatcher"
	UserRoleAdmin      UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleStoreOwner,
	UserRoleDriver,
	UserRoleTaxiDriver,
	UserRoleDispatcher,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsCarrier reports whether the role may be assigned deliveries. Dispatcher
// accounts carry the same commission gating as drivers.
func (u UserRole) IsCarrier() bool {
	return u == UserRoleDriver || u == UserRoleTaxiDriver || u == UserRoleDispatcher
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
