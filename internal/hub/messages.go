package hub

import (
	"github.com/aerolab/tunnelcore/internal/anomaly"
	"github.com/aerolab/tunnelcore/internal/state"
)

// Message types exchanged over the real-time sockets.
const (
	TypeVersionInfo           = "version_info"
	TypeUpdateMicro           = "updateMicro"
	TypeForceData             = "force_data"
	TypeSettings              = "settings"
	TypeSettingsUpdate        = "settings_update"
	TypeVerificationToken     = "verificationToken"
	TypeAuthSuccess           = "authenticationSuccess"
	TypeError                 = "error"
	TypeInfo                  = "info"
	TypeWarning               = "warning"
	TypeGetCurrentSettings    = "getCurrentSettings"
	TypeUpdateSettings        = "updateSettings"
	TypeAnomalyAlert          = "anomaly_alert"
	TypeMicrocontrollerStatus = "microcontroller_status"
)

// clientMessage is the decoded form of any inbound client frame. Pointer
// fields distinguish "absent" from zero values.
type clientMessage struct {
	Type      string   `json:"type"`
	Token     string   `json:"token"`
	ModelID   *int64   `json:"model_id"`
	WindSpeed *float64 `json:"wind_speed"`
	DeviceOn  any      `json:"device_on"`
}

// versionInfo is the first frame a microcontroller must send.
type versionInfo struct {
	Type            string `json:"type"`
	Role            string `json:"role"`
	FirmwareVersion string `json:"firmware_version"`
}

// forceData carries one telemetry sample from the force microcontroller.
type forceData struct {
	Type      string  `json:"type"`
	DragForce float64 `json:"drag_force"`
	DownForce float64 `json:"down_force"`
}

// UpdateMicroMessage instructs a microcontroller to fetch new firmware.
type UpdateMicroMessage struct {
	Type   string `json:"type"`
	OTAURL string `json:"ota_url"`
}

// AuthSuccessMessage acknowledges a successful client authentication.
type AuthSuccessMessage struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
}

// NoticeMessage is a typed human-readable notice (error, info or warning).
type NoticeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SettingsMessage is the full shared state, broadcast after every mutation.
type SettingsMessage struct {
	Type string `json:"type"`
	state.Snapshot
}

// SettingsUpdateMessage is the trimmed actuation view forwarded to the fan
// microcontroller after a client changes settings.
type SettingsUpdateMessage struct {
	Type      string  `json:"type"`
	ModelID   *int64  `json:"model_id"`
	UserID    *int64  `json:"user_id"`
	DeviceOn  bool    `json:"device_on"`
	WindSpeed float64 `json:"wind_speed"`
}

// AnomalyMessage wraps a detector alert for broadcast.
type AnomalyMessage struct {
	Type string `json:"type"`
	anomaly.Alert
}

// MicroStatusMessage announces a microcontroller connecting or disconnecting.
type MicroStatusMessage struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	Connected bool   `json:"connected"`
}

// NewSettingsMessage builds the broadcast settings frame from a snapshot.
func NewSettingsMessage(snap state.Snapshot) SettingsMessage {
	return SettingsMessage{Type: TypeSettings, Snapshot: snap}
}

// NewSettingsUpdateMessage builds the fan-bound actuation frame from a snapshot.
func NewSettingsUpdateMessage(snap state.Snapshot) SettingsUpdateMessage {
	return SettingsUpdateMessage{
		Type:      TypeSettingsUpdate,
		ModelID:   snap.ModelID,
		UserID:    snap.UserID,
		DeviceOn:  snap.DeviceOn,
		WindSpeed: snap.WindSpeed,
	}
}

func errorMessage(msg string) NoticeMessage {
	return NoticeMessage{Type: TypeError, Message: msg}
}

func infoMessage(msg string) NoticeMessage {
	return NoticeMessage{Type: TypeInfo, Message: msg}
}

func warningMessage(msg string) NoticeMessage {
	return NoticeMessage{Type: TypeWarning, Message: msg}
}
