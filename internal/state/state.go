package state

import (
	"strings"
	"sync"
	"time"
)

// Snapshot is an immutable copy of the shared session state at one instant.
// It is what gets broadcast to clients and sampled by the recorder.
type Snapshot struct {
	ModelID                  *int64     `json:"model_id"`
	UserID                   *int64     `json:"user_id"`
	DeviceOn                 bool       `json:"device_on"`
	WindSpeed                float64    `json:"wind_speed"`
	CarName                  *string    `json:"car_name"`
	Manufacturer             *string    `json:"manufacturer"`
	CarType                  *string    `json:"car_type"`
	DragForce                float64    `json:"drag_force"`
	DownForce                float64    `json:"down_force"`
	LastUpdated              time.Time  `json:"last_updated"`
	MicrocontrollerConnected bool       `json:"microcontroller_connected"`
	LastMicrocontrollerData  *time.Time `json:"last_microcontroller_data"`
}

// ModelSelection describes the car model fields that change together when a
// model is selected.
type ModelSelection struct {
	ModelID      int64
	CarName      string
	Manufacturer string
	CarType      string
}

// Update is a partial mutation of the shared state. Nil fields are left
// untouched. DeviceOn accepts raw JSON values and is coerced by Apply.
type Update struct {
	// Model selects a car model (all model fields change together).
	Model *ModelSelection

	// ClearModel clears the model selection fields. Takes precedence over Model.
	ClearModel bool

	UserID    *int64
	WindSpeed *float64

	// DeviceOn is coerced: booleans pass through, "true"/"false" strings are
	// parsed case-insensitively, anything else falls back to false.
	DeviceOn any

	DragForce *float64
	DownForce *float64

	// TelemetryAt stamps LastMicrocontrollerData.
	TelemetryAt *time.Time

	// MicroConnected sets the global microcontroller connection flag.
	MicroConnected *bool
}

// Result carries the state before and after an accepted Apply, so callers can
// detect transitions (e.g. device_on switching off) without a second lock.
type Result struct {
	Previous Snapshot
	Current  Snapshot
}

// Store is the single authoritative record of the current session values.
// All access is mutually exclusive; concurrent client and device updates
// cannot interleave into a lost update.
type Store struct {
	mu  sync.Mutex
	cur Snapshot
}

// New creates a Store with zeroed session values.
func New() *Store {
	return &Store{
		cur: Snapshot{
			LastUpdated: time.Now(),
		},
	}
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Apply merges the supplied fields into the shared state under the store lock.
//
// A negative wind speed rejects the whole update with ErrNegativeWindSpeed and
// leaves the state untouched. Every accepted update advances LastUpdated.
func (s *Store) Apply(u Update) (Result, error) {
	if u.WindSpeed != nil && *u.WindSpeed < 0 {
		return Result{}, ErrNegativeWindSpeed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.cur

	switch {
	case u.ClearModel:
		s.cur.ModelID = nil
		s.cur.CarName = nil
		s.cur.Manufacturer = nil
		s.cur.CarType = nil
	case u.Model != nil:
		id := u.Model.ModelID
		name := u.Model.CarName
		manufacturer := u.Model.Manufacturer
		carType := u.Model.CarType
		s.cur.ModelID = &id
		s.cur.CarName = &name
		s.cur.Manufacturer = &manufacturer
		s.cur.CarType = &carType
	}

	if u.UserID != nil {
		id := *u.UserID
		s.cur.UserID = &id
	}
	if u.WindSpeed != nil {
		s.cur.WindSpeed = *u.WindSpeed
	}
	if u.DeviceOn != nil {
		s.cur.DeviceOn = CoerceBool(u.DeviceOn)
	}
	if u.DragForce != nil {
		s.cur.DragForce = *u.DragForce
	}
	if u.DownForce != nil {
		s.cur.DownForce = *u.DownForce
	}
	if u.TelemetryAt != nil {
		at := *u.TelemetryAt
		s.cur.LastMicrocontrollerData = &at
	}
	if u.MicroConnected != nil {
		s.cur.MicrocontrollerConnected = *u.MicroConnected
	}

	// LastUpdated must advance on every accepted mutation, even when the
	// clock has not ticked between two updates.
	now := time.Now()
	if !now.After(prev.LastUpdated) {
		now = prev.LastUpdated.Add(time.Nanosecond)
	}
	s.cur.LastUpdated = now

	return Result{Previous: prev, Current: s.cur}, nil
}

// CoerceBool converts a raw JSON value to the device_on boolean.
// Booleans pass through, "true"/"false" strings are matched
// case-insensitively, everything else is false.
func CoerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	default:
		return false
	}
}
