package mqtt

import "fmt"

// Topic layout: tunnel/{category}/{qualifier}. Everything this service
// publishes lives under the tunnel/ prefix so brokers shared with other
// lab systems can scope ACLs to it.
const (
	topicPrefix = "tunnel"
)

// TelemetryTopic returns the topic for force samples from one
// microcontroller role.
//
// Example: tunnel/telemetry/force_micro
func TelemetryTopic(role string) string {
	return fmt.Sprintf("%s/telemetry/%s", topicPrefix, role)
}

// AlertsTopic returns the topic for anomaly alerts.
func AlertsTopic() string {
	return topicPrefix + "/alerts"
}

// SystemStatusTopic returns the retained topic announcing whether the hub
// itself is online.
func SystemStatusTopic() string {
	return topicPrefix + "/system/status"
}
