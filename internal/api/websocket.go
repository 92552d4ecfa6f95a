package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aerolab/tunnelcore/internal/hub"
)

// writeWait is the maximum time allowed for a single WebSocket write.
const writeWait = 10 * time.Second

// wsConn adapts a gorilla connection to the hub.Conn interface.
//
// Gorilla permits one concurrent writer; the mutex serialises session
// replies, broadcasts and keepalive pings onto the wire.
type wsConn struct {
	conn        *websocket.Conn
	pongTimeout time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Server) newWSConn(conn *websocket.Conn) *wsConn {
	ws := &wsConn{
		conn: conn,
		done: make(chan struct{}),
	}

	if s.wsCfg.MaxMessageSize > 0 {
		conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	}

	if s.wsCfg.PongTimeout > 0 {
		ws.pongTimeout = time.Duration(s.wsCfg.PongTimeout) * time.Second
		_ = conn.SetReadDeadline(time.Now().Add(ws.pongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(ws.pongTimeout))
		})
		if s.wsCfg.PingInterval > 0 {
			go ws.pingLoop(time.Duration(s.wsCfg.PingInterval) * time.Second)
		}
	}

	return ws
}

func (c *wsConn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Microcontrollers send no Origin header.
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}
}

// handleClientWS upgrades a control client connection and runs its session
// until the socket closes. Authentication happens in-band as the first frame.
func (s *Server) handleClientWS(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("client websocket upgrade failed", "error", err)
		return
	}

	// The session runs under the server context, not the request context:
	// the handler goroutine is the session goroutine.
	hub.ServeClient(s.ctx, s.newWSConn(conn), hub.ClientDeps{
		Registry:      s.registry,
		Store:         s.store,
		Verifier:      s.verifier,
		Models:        s.models,
		RecencyWindow: s.recency,
		Logger:        s.logger,
	})
}

// handleDeviceWS upgrades a microcontroller connection and runs its session
// until the socket closes.
func (s *Server) handleDeviceWS(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("microcontroller websocket upgrade failed", "error", err)
		return
	}

	hub.ServeDevice(s.newWSConn(conn), hub.DeviceDeps{
		Registry: s.registry,
		Store:    s.store,
		Firmware: s.firmware,
		TSDB:     s.tsdb,
		Relay:    s.relay,
		Logger:   s.logger,
	})
}
