package ws

import (
	"encoding/json"
	"sync"
	"time"

	"roomrelay/internal/rooms"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// clientConn is the transport handle the room core delivers to. All writes go
// through the send queue so that only the writer goroutine touches rawConn.
type clientConn struct {
	id      rooms.ClientID
	rawConn *websocket.Conn
	send    chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

var _ rooms.Conn = (*clientConn)(nil)

func newClientConn(id rooms.ClientID, raw *websocket.Conn, buffer int) *clientConn {
	return &clientConn{
		id:      id,
		rawConn: raw,
		send:    make(chan []byte, buffer),
		closed:  make(chan struct{}),
	}
}

// Send never blocks; a full queue or a closed connection drops the frame.
func (c *clientConn) Send(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *clientConn) sendJSON(v any) bool {
	frame, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("ws.encode", zap.String("client", string(c.id)), zap.Error(err))
		return false
	}
	return c.Send(frame)
}

func (c *clientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.rawConn.Close()
	})
}

// writer drains the send queue and keeps the connection alive with pings.
func (c *clientConn) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.TextMessage, frame); err != nil {
				zap.L().Debug("ws.write", zap.String("client", string(c.id)), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Debug("ws.ping", zap.String("client", string(c.id)), zap.Error(err))
				return
			}
		}
	}
}
