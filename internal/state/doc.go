// Package state holds the shared wind tunnel session state.
//
// The Store is the single authoritative record of the current session: the
// selected car model and operator, device power, wind speed, and the latest
// force readings from the rig. Client commands and microcontroller telemetry
// both mutate it through Apply; everything else reads immutable Snapshots.
//
// All access goes through one mutex, so a read-then-mutate sequence such as a
// telemetry merge or a settings update executes as a single unit.
package state
