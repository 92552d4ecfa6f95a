package firmware

import (
	"github.com/aerolab/tunnelcore/internal/infrastructure/config"
)

// RoleFirmware is the expected firmware version and OTA image location for
// one microcontroller role. This is configuration, not session state.
type RoleFirmware struct {
	ExpectedVersion string
	OTAURL          string
}

// Negotiator performs the one-shot firmware version comparison when a
// microcontroller connects.
type Negotiator struct {
	roles map[string]RoleFirmware
}

// NewNegotiator builds a Negotiator from the firmware configuration section.
func NewNegotiator(cfg config.FirmwareConfig) *Negotiator {
	roles := make(map[string]RoleFirmware, len(cfg.Roles))
	for role, rc := range cfg.Roles {
		roles[role] = RoleFirmware{
			ExpectedVersion: rc.ExpectedVersion,
			OTAURL:          rc.OTAURL,
		}
	}
	return &Negotiator{roles: roles}
}

// Check compares the reported firmware version against the expected version
// for the role.
//
// Comparison is exact string equality; there are no semver or ordering
// semantics, so a declared downgrade is a mismatch like any other. On
// mismatch it returns the OTA URL and true. A match, or a role with no
// configured firmware, returns false and the session proceeds either way.
func (n *Negotiator) Check(role, reportedVersion string) (otaURL string, update bool) {
	rc, ok := n.roles[role]
	if !ok {
		return "", false
	}
	if reportedVersion == rc.ExpectedVersion {
		return "", false
	}
	return rc.OTAURL, true
}

// Expected returns the configured firmware record for a role, if any.
func (n *Negotiator) Expected(role string) (RoleFirmware, bool) {
	rc, ok := n.roles[role]
	return rc, ok
}
