package hub

import (
	"sync"

	"github.com/google/uuid"
)

// ClientConn is one authenticated control client connection.
type ClientConn struct {
	ID     string
	UserID int64
	conn   Conn
}

// Send delivers one message to the client. Single attempt, no retry.
func (c *ClientConn) Send(v any) error {
	return c.conn.WriteJSON(v)
}

// DeviceConn is one registered microcontroller connection.
type DeviceConn struct {
	Role            string
	FirmwareVersion string
	conn            Conn
}

// Registry tracks every live connection: an open set of control clients and
// at most one microcontroller per role. All methods are safe for concurrent
// use; sends happen outside the lock so a slow peer cannot stall the rest.
type Registry struct {
	mu      sync.Mutex
	clients map[*ClientConn]struct{}
	devices map[string]*DeviceConn
	logger  Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*ClientConn]struct{}),
		devices: make(map[string]*DeviceConn),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger used for connection lifecycle events.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// RegisterClient adds an authenticated client connection.
func (r *Registry) RegisterClient(userID int64, conn Conn) *ClientConn {
	c := &ClientConn{ID: uuid.NewString(), UserID: userID, conn: conn}

	r.mu.Lock()
	r.clients[c] = struct{}{}
	count := len(r.clients)
	r.mu.Unlock()

	r.logger.Info("client connected", "client_id", c.ID, "user_id", userID, "clients", count)
	return c
}

// UnregisterClient removes a client connection. Safe to call more than once;
// a client already evicted by a failed broadcast is simply ignored.
func (r *Registry) UnregisterClient(c *ClientConn) {
	r.mu.Lock()
	_, present := r.clients[c]
	delete(r.clients, c)
	count := len(r.clients)
	r.mu.Unlock()

	if present {
		r.logger.Info("client disconnected", "client_id", c.ID, "clients", count)
	}
}

// ClientCount returns the number of registered clients.
func (r *Registry) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// RegisterDevice records a microcontroller connection for its role. Any
// previous holder of the role is evicted and its connection closed; the
// newest connection always wins.
func (r *Registry) RegisterDevice(role, firmwareVersion string, conn Conn) *DeviceConn {
	d := &DeviceConn{Role: role, FirmwareVersion: firmwareVersion, conn: conn}

	r.mu.Lock()
	prev := r.devices[role]
	r.devices[role] = d
	r.mu.Unlock()

	if prev != nil {
		r.logger.Warn("evicting stale microcontroller connection", "role", role)
		_ = prev.conn.Close()
	}
	r.logger.Info("microcontroller connected", "role", role, "firmware_version", firmwareVersion)
	return d
}

// UnregisterDevice removes a microcontroller connection, but only if it is
// still the current holder of its role. Returns whether it was removed, so
// an evicted session knows not to announce a disconnect on behalf of its
// replacement.
func (r *Registry) UnregisterDevice(d *DeviceConn) bool {
	r.mu.Lock()
	current := r.devices[d.Role] == d
	if current {
		delete(r.devices, d.Role)
	}
	r.mu.Unlock()

	if current {
		r.logger.Info("microcontroller disconnected", "role", d.Role)
	}
	return current
}

// DeviceConnected reports whether a microcontroller currently holds role.
func (r *Registry) DeviceConnected(role string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.devices[role]
	return ok
}

// Broadcast sends msg to every registered client. Each client gets exactly
// one attempt; a failed send removes the client permanently and closes its
// connection.
func (r *Registry) Broadcast(msg any) {
	r.mu.Lock()
	targets := make([]*ClientConn, 0, len(r.clients))
	for c := range r.clients {
		targets = append(targets, c)
	}
	r.mu.Unlock()

	var failed []*ClientConn
	for _, c := range targets {
		if err := c.conn.WriteJSON(msg); err != nil {
			failed = append(failed, c)
		}
	}

	if len(failed) == 0 {
		return
	}

	r.mu.Lock()
	for _, c := range failed {
		delete(r.clients, c)
	}
	count := len(r.clients)
	r.mu.Unlock()

	for _, c := range failed {
		_ = c.conn.Close()
		r.logger.Warn("client dropped after failed send", "client_id", c.ID, "clients", count)
	}
}

// SendToRole delivers msg to the microcontroller holding role, if any.
// Best effort: no device and failed sends are both silent no-ops.
func (r *Registry) SendToRole(role string, msg any) {
	r.mu.Lock()
	d := r.devices[role]
	r.mu.Unlock()

	if d == nil {
		return
	}
	if err := d.conn.WriteJSON(msg); err != nil {
		r.logger.Warn("send to microcontroller failed", "role", role, "error", err)
	}
}
