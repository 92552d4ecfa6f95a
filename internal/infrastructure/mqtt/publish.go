package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize bounds a single message at 1MB, matching typical broker limits.
const maxPayloadSize = 1 << 20

// Publish marshals v as JSON and sends it to topic at the configured QoS.
//
// Messages are not retained; telemetry and alerts are streams, not state.
func (c *Client) Publish(topic string, v any) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
