package hub

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
)

var errWriteFailed = errors.New("write failed")

// fakeConn is a scripted Conn. Inbound frames are consumed in order;
// ReadMessage returns io.EOF once they run out, ending the session loop.
type fakeConn struct {
	frames chan []byte

	mu         sync.Mutex
	sent       []any
	failWrites bool
	closed     bool
}

func newFakeConn(frames ...string) *fakeConn {
	c := &fakeConn{frames: make(chan []byte, len(frames))}
	for _, f := range frames {
		c.frames <- []byte(f)
	}
	close(c.frames)
	return c
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	f, ok := <-c.frames
	if !ok {
		return nil, io.EOF
	}
	return f, nil
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errWriteFailed
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) setFailWrites(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWrites = fail
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.sent))
	copy(out, c.sent)
	return out
}

// messageTypes extracts the "type" field of every sent message, in order.
func (c *fakeConn) messageTypes(t *testing.T) []string {
	t.Helper()
	var types []string
	for _, m := range c.messages() {
		raw, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshalling sent message: %v", err)
		}
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("unmarshalling sent message: %v", err)
		}
		types = append(types, envelope.Type)
	}
	return types
}

// lastOfType returns the most recent sent message with the given type,
// re-marshalled into dst.
func (c *fakeConn) lastOfType(t *testing.T, msgType string, dst any) bool {
	t.Helper()
	msgs := c.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		raw, err := json.Marshal(msgs[i])
		if err != nil {
			t.Fatalf("marshalling sent message: %v", err)
		}
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("unmarshalling sent message: %v", err)
		}
		if envelope.Type == msgType {
			if err := json.Unmarshal(raw, dst); err != nil {
				t.Fatalf("unmarshalling %s message: %v", msgType, err)
			}
			return true
		}
	}
	return false
}
