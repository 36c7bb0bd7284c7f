package enums

import "fmt"

// SystemRole separates customers from restaurant staff.
type SystemRole string

const (
	SystemRoleCustomer SystemRole = "customer"
	SystemRoleStaff    SystemRole = "staff"
)

// String implements fmt.Stringer.
func (r SystemRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known SystemRole.
func (r SystemRole) IsValid() bool {
	return r == SystemRoleCustomer || r == SystemRoleStaff
}

// ParseSystemRole converts raw input into a SystemRole.
func ParseSystemRole(value string) (SystemRole, error) {
	role := SystemRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid system role %q", value)
	}
	return role, nil
}
