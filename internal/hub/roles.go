package hub

// Microcontroller roles. Each role has at most one active connection; a new
// connection under the same role evicts the previous holder.
const (
	// RoleFan is the wind-speed actuator microcontroller.
	RoleFan = "fan_micro"

	// RoleForce is the force sensor microcontroller.
	RoleForce = "force_micro"
)

// ValidRole reports whether role names a known microcontroller role.
func ValidRole(role string) bool {
	switch role {
	case RoleFan, RoleForce:
		return true
	default:
		return false
	}
}
