package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aerolab/tunnelcore/internal/auth"
	"github.com/aerolab/tunnelcore/internal/state"
	"github.com/aerolab/tunnelcore/internal/storage"
)

// TokenVerifier resolves a bearer token to an authenticated identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// ModelCatalog is the slice of the model repository client sessions need.
type ModelCatalog interface {
	GetByID(ctx context.Context, id int64) (*storage.CarModel, error)
	List(ctx context.Context) ([]storage.CarModel, error)
}

// ClientDeps bundles what a control client session needs.
type ClientDeps struct {
	Registry *Registry
	Store    *state.Store
	Verifier TokenVerifier
	Models   ModelCatalog

	// RecencyWindow bounds how stale telemetry may be before turning the
	// device on draws a warning. Zero means no warning is ever suppressed
	// by recent data.
	RecencyWindow time.Duration

	Logger Logger
}

// ServeClient runs one control client session to completion.
//
// The first frame must be a verificationToken; a failed authentication sends
// a typed error and closes the connection. After authenticationSuccess the
// session validates the selected model against the catalog, pushes the
// current settings, then serves commands until the transport fails. Invalid
// commands get a typed error and the session stays open.
func ServeClient(ctx context.Context, conn Conn, deps ClientDeps) {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	identity, ok := authenticate(ctx, conn, deps, logger)
	if !ok {
		_ = conn.Close()
		return
	}

	if err := conn.WriteJSON(AuthSuccessMessage{Type: TypeAuthSuccess, UserID: identity.UserID}); err != nil {
		_ = conn.Close()
		return
	}

	client := deps.Registry.RegisterClient(identity.UserID, conn)
	sess := &clientSession{deps: deps, client: client, identity: identity, logger: logger}

	sess.pushSettings(ctx)

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if !sess.handleFrame(ctx, raw) {
			break
		}
	}

	deps.Registry.UnregisterClient(client)
	_ = conn.Close()
}

func authenticate(ctx context.Context, conn Conn, deps ClientDeps, logger Logger) (auth.Identity, bool) {
	raw, err := conn.ReadMessage()
	if err != nil {
		return auth.Identity{}, false
	}

	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		_ = conn.WriteJSON(errorMessage("Invalid JSON format in initial message"))
		return auth.Identity{}, false
	}
	if msg.Type != TypeVerificationToken || msg.Token == "" {
		_ = conn.WriteJSON(errorMessage("First message must be of type 'verificationToken' with a token"))
		return auth.Identity{}, false
	}

	identity, err := deps.Verifier.Verify(ctx, msg.Token)
	if err != nil {
		logger.Warn("client authentication failed", "error", err)
		_ = conn.WriteJSON(errorMessage(authFailureText(err)))
		return auth.Identity{}, false
	}
	return identity, true
}

func authFailureText(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "Token has expired. Please log in again."
	case errors.Is(err, auth.ErrUserNotFound):
		return "User not found. Please log in again."
	default:
		return "Invalid token. Please log in again."
	}
}

type clientSession struct {
	deps     ClientDeps
	client   *ClientConn
	identity auth.Identity
	logger   Logger
}

// handleFrame processes one inbound frame. Returns false when the session
// should end.
func (s *clientSession) handleFrame(ctx context.Context, raw []byte) bool {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return s.send(errorMessage("Invalid JSON message"))
	}

	switch msg.Type {
	case "":
		return s.send(errorMessage("Message must include a 'type' field"))
	case TypeGetCurrentSettings:
		s.pushSettings(ctx)
		return true
	case TypeUpdateSettings:
		return s.handleUpdateSettings(ctx, msg)
	default:
		return s.send(errorMessage(fmt.Sprintf("Unknown message type: %s", msg.Type)))
	}
}

// send delivers a message to this session's client only. Returns false when
// the transport is gone.
func (s *clientSession) send(v any) bool {
	return s.client.Send(v) == nil
}

// pushSettings revalidates the selected model against the catalog and sends
// the resulting settings to this client. A vanished or never-set selection
// auto-switches to the first available model with an explanatory info frame.
func (s *clientSession) pushSettings(ctx context.Context) {
	snap, switched, err := s.syncModelSelection(ctx)
	if err != nil {
		s.logger.Error("validating model selection", "error", err)
		s.send(errorMessage("Error retrieving current settings"))
		return
	}

	if !s.send(NewSettingsMessage(snap)) {
		return
	}
	if switched {
		s.send(infoMessage("Selected car model was deleted. Switched to first available car model."))
	}
}

func (s *clientSession) syncModelSelection(ctx context.Context) (state.Snapshot, bool, error) {
	snap := s.deps.Store.Snapshot()

	if snap.ModelID != nil {
		_, err := s.deps.Models.GetByID(ctx, *snap.ModelID)
		if err == nil {
			return snap, false, nil
		}
		if !errors.Is(err, storage.ErrModelNotFound) {
			return snap, false, err
		}
	}

	models, err := s.deps.Models.List(ctx)
	if err != nil {
		return snap, false, err
	}
	if len(models) == 0 {
		res, err := s.deps.Store.Apply(state.Update{ClearModel: true})
		if err != nil {
			return snap, false, err
		}
		return res.Current, false, nil
	}

	first := models[0]
	res, err := s.deps.Store.Apply(state.Update{Model: &state.ModelSelection{
		ModelID:      first.ID,
		CarName:      first.CarName,
		Manufacturer: first.Manufacturer,
		CarType:      first.CarType,
	}})
	if err != nil {
		return snap, false, err
	}
	return res.Current, true, nil
}

func (s *clientSession) handleUpdateSettings(ctx context.Context, msg clientMessage) bool {
	// user_id always comes from the authenticated identity, never the frame.
	upd := state.Update{UserID: &s.identity.UserID}
	var switched, noModels bool

	if msg.ModelID != nil {
		model, err := s.deps.Models.GetByID(ctx, *msg.ModelID)
		switch {
		case err == nil:
			upd.Model = &state.ModelSelection{
				ModelID:      model.ID,
				CarName:      model.CarName,
				Manufacturer: model.Manufacturer,
				CarType:      model.CarType,
			}
		case errors.Is(err, storage.ErrModelNotFound):
			models, lerr := s.deps.Models.List(ctx)
			if lerr != nil {
				s.logger.Error("listing car models", "error", lerr)
				return s.send(errorMessage("Error processing message"))
			}
			if len(models) == 0 {
				upd.ClearModel = true
				noModels = true
			} else {
				first := models[0]
				upd.Model = &state.ModelSelection{
					ModelID:      first.ID,
					CarName:      first.CarName,
					Manufacturer: first.Manufacturer,
					CarType:      first.CarType,
				}
				switched = true
			}
		default:
			s.logger.Error("looking up car model", "model_id", *msg.ModelID, "error", err)
			return s.send(errorMessage("Error processing message"))
		}
	}

	if msg.WindSpeed != nil {
		if *msg.WindSpeed < 0 {
			return s.send(errorMessage("Wind speed cannot be negative"))
		}
		upd.WindSpeed = msg.WindSpeed
	}

	deviceTouched := msg.DeviceOn != nil
	if deviceTouched {
		upd.DeviceOn = msg.DeviceOn
	}

	// A requested model that cannot resolve to any catalog entry rejects the
	// rest of the frame too.
	if noModels {
		if _, err := s.deps.Store.Apply(state.Update{ClearModel: true, UserID: upd.UserID}); err != nil {
			s.logger.Error("clearing model selection", "error", err)
		}
		return s.send(errorMessage("No car models available. Please add a car model."))
	}

	res, err := s.deps.Store.Apply(upd)
	if err != nil {
		if errors.Is(err, state.ErrNegativeWindSpeed) {
			return s.send(errorMessage("Wind speed cannot be negative"))
		}
		s.logger.Error("applying settings update", "error", err)
		return s.send(errorMessage("Error processing message"))
	}

	if switched {
		if !s.send(infoMessage("Selected car model was deleted. Switched to first available car model.")) {
			return false
		}
	}

	if deviceTouched && res.Current.DeviceOn && !s.microLive(res.Current) {
		if !s.send(warningMessage("Device turned on but no microcontroller is connected. Data will not be recorded.")) {
			return false
		}
	}

	if deviceTouched && res.Previous.DeviceOn && !res.Current.DeviceOn {
		s.deps.Registry.Broadcast(infoMessage("Device turned off - data recording stopped"))
	}

	s.deps.Registry.Broadcast(NewSettingsMessage(res.Current))
	s.deps.Registry.SendToRole(RoleFan, NewSettingsUpdateMessage(res.Current))
	return true
}

// microLive reports whether a microcontroller is connected or has delivered
// telemetry within the recency window.
func (s *clientSession) microLive(snap state.Snapshot) bool {
	if snap.MicrocontrollerConnected {
		return true
	}
	if snap.LastMicrocontrollerData == nil || s.deps.RecencyWindow <= 0 {
		return false
	}
	return time.Since(*snap.LastMicrocontrollerData) < s.deps.RecencyWindow
}
