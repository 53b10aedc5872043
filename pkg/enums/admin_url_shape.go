package enums

import "fmt"

// AdminURLShape classifies the configured admin address. Only the origin shape
// is canonical; the rest are accepted for older deployments.
type AdminURLShape string

const (
	AdminURLShapeOrigin       AdminURLShape = "origin"
	AdminURLShapeWithPath     AdminURLShape = "origin_with_path"
	AdminURLShapeStoreScoped  AdminURLShape = "store_scoped"
	AdminURLShapeCheckoutPath AdminURLShape = "checkout_path"
	AdminURLShapeRelative     AdminURLShape = "relative"
	AdminURLShapeMalformed    AdminURLShape = "malformed"
)

var validAdminURLShapes = []AdminURLShape{
	AdminURLShapeOrigin,
	AdminURLShapeWithPath,
	AdminURLShapeStoreScoped,
	AdminURLShapeCheckoutPath,
	AdminURLShapeRelative,
	AdminURLShapeMalformed,
}

// String implements fmt.Stringer.
func (a AdminURLShape) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AdminURLShape.
func (a AdminURLShape) IsValid() bool {
	for _, candidate := range validAdminURLShapes {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsLegacy reports whether the shape is a compatibility shim.
func (a AdminURLShape) IsLegacy() bool {
	return a != AdminURLShapeOrigin
}

// ParseAdminURLShape converts raw input into an AdminURLShape.
func ParseAdminURLShape(value string) (AdminURLShape, error) {
	for _, candidate := range validAdminURLShapes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin url shape %q", value)
}
