package hub

import (
	"encoding/json"
	"time"

	"github.com/aerolab/tunnelcore/internal/anomaly"
	"github.com/aerolab/tunnelcore/internal/firmware"
	"github.com/aerolab/tunnelcore/internal/infrastructure/influxdb"
	"github.com/aerolab/tunnelcore/internal/infrastructure/mqtt"
	"github.com/aerolab/tunnelcore/internal/state"
)

// DeviceDeps bundles what a microcontroller session needs. TSDB and Relay
// are optional; nil disables the mirror.
type DeviceDeps struct {
	Registry *Registry
	Store    *state.Store
	Firmware *firmware.Negotiator
	TSDB     *influxdb.Client
	Relay    *mqtt.Client
	Logger   Logger
}

// ServeDevice runs one microcontroller session to completion.
//
// The first frame must be a version_info declaring role and firmware
// version; anything else abandons the connection without touching shared
// state. After a successful handshake the session registers the device,
// flips the shared connected flag, announces the status to all clients and
// enters the telemetry loop until the transport fails.
func ServeDevice(conn Conn, deps DeviceDeps) {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	info, err := readVersionInfo(conn)
	if err != nil {
		logger.Warn("microcontroller handshake rejected", "error", err)
		_ = conn.Close()
		return
	}

	if url, update := deps.Firmware.Check(info.Role, info.FirmwareVersion); update {
		expected, _ := deps.Firmware.Expected(info.Role)
		logger.Info("firmware update required",
			"role", info.Role,
			"reported_version", info.FirmwareVersion,
			"expected_version", expected.ExpectedVersion)
		if err := conn.WriteJSON(UpdateMicroMessage{Type: TypeUpdateMicro, OTAURL: url}); err != nil {
			logger.Warn("firmware update notice failed", "role", info.Role, "error", err)
			_ = conn.Close()
			return
		}
	}

	dev := deps.Registry.RegisterDevice(info.Role, info.FirmwareVersion, conn)

	connected := true
	if _, err := deps.Store.Apply(state.Update{MicroConnected: &connected}); err != nil {
		logger.Error("recording microcontroller connect", "role", info.Role, "error", err)
	}
	deps.Registry.Broadcast(MicroStatusMessage{
		Type:      TypeMicrocontrollerStatus,
		Role:      info.Role,
		Connected: true,
	})

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		handleDeviceFrame(raw, info.Role, deps, logger)
	}

	// An evicted session must not clear state owned by its replacement.
	if deps.Registry.UnregisterDevice(dev) {
		connected = false
		if _, err := deps.Store.Apply(state.Update{MicroConnected: &connected}); err != nil {
			logger.Error("recording microcontroller disconnect", "role", info.Role, "error", err)
		}
		deps.Registry.Broadcast(MicroStatusMessage{
			Type:      TypeMicrocontrollerStatus,
			Role:      info.Role,
			Connected: false,
		})
	}
	_ = conn.Close()
}

func readVersionInfo(conn Conn) (versionInfo, error) {
	raw, err := conn.ReadMessage()
	if err != nil {
		return versionInfo{}, err
	}

	var info versionInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return versionInfo{}, ErrProtocolViolation
	}
	if info.Type != TypeVersionInfo || info.FirmwareVersion == "" {
		return versionInfo{}, ErrProtocolViolation
	}
	if !ValidRole(info.Role) {
		return versionInfo{}, ErrUnknownRole
	}
	return info, nil
}

func handleDeviceFrame(raw []byte, role string, deps DeviceDeps, logger Logger) {
	var frame forceData
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Warn("malformed microcontroller frame", "role", role, "error", err)
		return
	}
	if frame.Type != TypeForceData {
		logger.Debug("ignoring microcontroller frame", "role", role, "type", frame.Type)
		return
	}

	now := time.Now()
	connected := true
	res, err := deps.Store.Apply(state.Update{
		DragForce:      &frame.DragForce,
		DownForce:      &frame.DownForce,
		TelemetryAt:    &now,
		MicroConnected: &connected,
	})
	if err != nil {
		logger.Error("applying telemetry", "role", role, "error", err)
		return
	}

	deps.Registry.Broadcast(NewSettingsMessage(res.Current))

	if alert := anomaly.Detect(res.Current); alert != nil {
		logger.Warn("anomaly detected",
			"anomaly_type", alert.AnomalyType,
			"severity", alert.Severity,
			"message", alert.Message)
		deps.Registry.Broadcast(AnomalyMessage{Type: TypeAnomalyAlert, Alert: *alert})
		if deps.Relay != nil {
			if err := deps.Relay.Publish(mqtt.AlertsTopic(), alert); err != nil {
				logger.Warn("publishing anomaly alert", "error", err)
			}
		}
	}

	if deps.TSDB != nil {
		deps.TSDB.WriteForceSample(role, frame.DragForce, frame.DownForce, res.Current.WindSpeed)
	}
	if deps.Relay != nil {
		payload := map[string]float64{
			"drag_force": frame.DragForce,
			"down_force": frame.DownForce,
			"wind_speed": res.Current.WindSpeed,
		}
		if err := deps.Relay.Publish(mqtt.TelemetryTopic(role), payload); err != nil {
			logger.Warn("publishing telemetry", "role", role, "error", err)
		}
	}
}
