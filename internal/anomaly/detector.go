package anomaly

import (
	"math"

	"github.com/aerolab/tunnelcore/internal/state"
)

// Anomaly categories.
const (
	TypeDataAnomaly      = "DATA_ANOMALY"
	TypePhysicsViolation = "PHYSICS_VIOLATION"
)

// Severity levels for alerts.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Evaluation thresholds.
const (
	// identicalForceEpsilon is the force difference below which drag and
	// downforce are considered suspiciously identical.
	identicalForceEpsilon = 0.001

	// minSignificantWindSpeed is the wind speed above which physics checks run.
	minSignificantWindSpeed = 1.0

	// maxDownforceRatio is the highest plausible downforce-to-drag ratio.
	maxDownforceRatio = 5.0
)

// Alert describes a single advisory anomaly found in a state snapshot.
// Alerts never block broadcast or persistence.
type Alert struct {
	AnomalyType string             `json:"anomaly_type"`
	Message     string             `json:"message"`
	Severity    string             `json:"severity"`
	Data        map[string]float64 `json:"data"`
}

// Detect evaluates a snapshot and returns at most one alert, or nil.
//
// Evaluation is skipped while no model or user is selected, or while both
// forces are zero. The rules run in a fixed order and a later rule's result
// unconditionally replaces an earlier one, so only the last matching rule's
// alert is reported.
func Detect(snap state.Snapshot) *Alert {
	if snap.ModelID == nil || snap.UserID == nil {
		return nil
	}
	if snap.DragForce == 0 && snap.DownForce == 0 {
		return nil
	}

	var alert *Alert

	// Rule 1: identical drag and downforce readings usually mean a stuck or
	// cross-wired load cell.
	if diff := math.Abs(snap.DragForce - snap.DownForce); diff < identicalForceEpsilon && snap.DragForce != 0 {
		alert = &Alert{
			AnomalyType: TypeDataAnomaly,
			Message:     "Identical drag and downforce values detected",
			Severity:    SeverityWarning,
			Data: map[string]float64{
				"drag_force": snap.DragForce,
				"down_force": snap.DownForce,
				"wind_speed": snap.WindSpeed,
				"difference": diff,
			},
		}
	}

	// Rule 2: downforce more than five times drag at significant wind speed
	// is outside anything the rig can produce.
	if snap.WindSpeed > minSignificantWindSpeed && snap.DragForce > 0 {
		if ratio := snap.DownForce / snap.DragForce; ratio > maxDownforceRatio {
			alert = &Alert{
				AnomalyType: TypePhysicsViolation,
				Message:     "Unrealistic downforce to drag ratio detected",
				Severity:    SeverityWarning,
				Data: map[string]float64{
					"drag_force":  snap.DragForce,
					"down_force":  snap.DownForce,
					"wind_speed":  snap.WindSpeed,
					"force_ratio": ratio,
				},
			}
		}
	}

	// Rule 3: drag opposing the airflow direction cannot happen with wind in
	// the tunnel; treated as an error and overrides rule 2.
	if snap.WindSpeed > minSignificantWindSpeed && snap.DragForce < 0 {
		alert = &Alert{
			AnomalyType: TypePhysicsViolation,
			Message:     "Negative drag force at positive wind speed detected",
			Severity:    SeverityError,
			Data: map[string]float64{
				"drag_force": snap.DragForce,
				"down_force": snap.DownForce,
				"wind_speed": snap.WindSpeed,
			},
		}
	}

	return alert
}
