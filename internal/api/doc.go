// Package api provides the HTTP and WebSocket surface of the tunnel service.
//
// Two WebSocket endpoints carry the real-time protocols: /ws/client for
// authenticated control clients and /ws/microcontroller for the rig
// hardware. A small read-only REST API exposes the current settings, the
// car model catalogue and recorded test samples for dashboards that do not
// need a live socket.
//
// The server follows the same lifecycle as the other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
