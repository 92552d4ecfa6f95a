// Package hub is the real-time coordination core of the wind tunnel service.
//
// It owns the connection registry (control clients plus at-most-one
// microcontroller per role), the broadcast dispatcher, and the two session
// protocols: the device session (firmware handshake followed by a telemetry
// loop) and the client session (token authentication followed by a command
// loop). Sessions read from and mutate the shared state store, run the
// anomaly detector on fresh telemetry, and fan results out to every
// registered client.
//
// Delivery is best effort: one send attempt per peer, no retry, no ordering
// guarantee. A client whose send fails is removed permanently.
package hub
