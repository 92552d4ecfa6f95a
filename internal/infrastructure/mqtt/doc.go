// Package mqtt relays telemetry and anomaly alerts to an external broker.
//
// The relay is optional: when disabled in config the rest of the service
// runs without it, and publish failures never interrupt a session. Topics
// live under the tunnel/ prefix; use the builders in topics.go rather than
// formatting strings by hand.
package mqtt
