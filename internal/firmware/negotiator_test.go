package firmware

import (
	"testing"

	"github.com/aerolab/tunnelcore/internal/infrastructure/config"
)

func testNegotiator() *Negotiator {
	return NewNegotiator(config.FirmwareConfig{
		Roles: map[string]config.FirmwareRoleConfig{
			"fan_micro": {
				ExpectedVersion: "1.0.0",
				OTAURL:          "https://example.com/fan_micro.bin",
			},
			"force_micro": {
				ExpectedVersion: "2.3.1",
				OTAURL:          "https://example.com/force_micro.bin",
			},
		},
	})
}

func TestCheck(t *testing.T) {
	n := testNegotiator()

	tests := []struct {
		name       string
		role       string
		reported   string
		wantUpdate bool
		wantURL    string
	}{
		{
			name:       "exact match sends nothing",
			role:       "fan_micro",
			reported:   "1.0.0",
			wantUpdate: false,
		},
		{
			name:       "older version triggers OTA",
			role:       "fan_micro",
			reported:   "0.9.0",
			wantUpdate: true,
			wantURL:    "https://example.com/fan_micro.bin",
		},
		{
			name:       "newer version is still a mismatch",
			role:       "force_micro",
			reported:   "9.9.9",
			wantUpdate: true,
			wantURL:    "https://example.com/force_micro.bin",
		},
		{
			name:       "unknown role sends nothing",
			role:       "humidity_micro",
			reported:   "0.0.1",
			wantUpdate: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, update := n.Check(tt.role, tt.reported)
			if update != tt.wantUpdate {
				t.Errorf("Check(%q, %q) update = %v, want %v", tt.role, tt.reported, update, tt.wantUpdate)
			}
			if url != tt.wantURL {
				t.Errorf("Check(%q, %q) url = %q, want %q", tt.role, tt.reported, url, tt.wantURL)
			}
		})
	}
}

func TestExpected(t *testing.T) {
	n := testNegotiator()

	rc, ok := n.Expected("force_micro")
	if !ok {
		t.Fatal("Expected(force_micro) not found")
	}
	if rc.ExpectedVersion != "2.3.1" {
		t.Errorf("ExpectedVersion = %q, want 2.3.1", rc.ExpectedVersion)
	}

	if _, ok := n.Expected("nope"); ok {
		t.Error("Expected(nope) = found, want not found")
	}
}
