package hub

// Conn is a message-oriented duplex channel to one peer.
//
// ReadMessage blocks until a message arrives and returns a transport error
// when the peer goes away. WriteJSON performs a single send attempt and must
// be safe for concurrent use: broadcasts and session replies originate from
// different goroutines, so implementations serialise writes internally.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Logger is the minimal logging interface the hub needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
