package enums

import "fmt"

// MethodStatus mirrors the status literal the admin service stores on payment
// and shipping methods.
type MethodStatus string

const (
	MethodStatusActive   MethodStatus = "Aktif"
	MethodStatusInactive MethodStatus = "Nonaktif"
)

var validMethodStatuses = []MethodStatus{
	MethodStatusActive,
	MethodStatusInactive,
}

// String implements fmt.Stringer.
func (m MethodStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MethodStatus.
func (m MethodStatus) IsValid() bool {
	for _, candidate := range validMethodStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// Enabled is true only for the exact active literal.
func (m MethodStatus) Enabled() bool {
	return m == MethodStatusActive
}

// ParseMethodStatus converts raw input into a MethodStatus.
func ParseMethodStatus(value string) (MethodStatus, error) {
	for _, candidate := range validMethodStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid method status %q", value)
}
