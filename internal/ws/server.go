package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"roomrelay/internal/rooms"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be < pongWait
	handlerTimeout = 2 * time.Second
)

var errEmptyMessage = errors.New("empty_message")

type Options struct {
	ReadLimit  int64 // max bytes per inbound frame
	SendBuffer int   // queued outbound frames per client
}

type WsServer struct {
	hub      *Hub
	router   *Router
	upgrader websocket.Upgrader
	opts     Options
}

func NewWsServer(h *Hub, opts Options) *WsServer {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 4096
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	srv := &WsServer{
		hub:    h,
		router: NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // game clients send no Origin
		},
		opts: opts,
	}
	srv.registerHandlers() // ← all WS events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.ReadLimit)

	// ─────────────────── Client connected ────────────────────────
	id := rooms.ClientID(uuid.NewString())
	conn := newClientConn(id, rawConn, s.opts.SendBuffer)
	if !s.hub.Connect(id, conn) {
		conn.Close()
		return
	}

	cc := &ConnContext{ClientID: id, Name: ginCtx.Query("name"), Server: s}
	go conn.writer()
	go s.reader(cc, conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 login ---------------------------------------------------------------
	Register(
		s.router,
		EventLogin,
		func(ctx context.Context, cc *ConnContext, name string) error {
			if name == "" {
				name = cc.Name
			}
			s.hub.Login(cc.ClientID, name)
			return nil
		},
	)

	// 🔹 message -------------------------------------------------------------
	Register(
		s.router,
		EventMessage,
		func(ctx context.Context, cc *ConnContext, body json.RawMessage) error {
			if len(body) == 0 {
				return errEmptyMessage
			}
			// Built once here, then shared by every recipient.
			s.hub.Message(cc.ClientID, messageFrame(body))
			return nil
		},
	)
}

func (s *WsServer) reader(cc *ConnContext, conn *clientConn) {
	defer func() {
		s.hub.Disconnect(cc.ClientID)
		conn.Close()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zap.L().Debug("ws.read", zap.String("client", string(cc.ClientID)), zap.Error(err))
			}
			return // client closed or errored
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			zap.L().Warn("ws.malformed_frame", zap.String("client", string(cc.ClientID)), zap.Error(err))
			conn.sendJSON(errorFrame("malformed_frame"))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		err = s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- error -> {"event":"error", "body":{...}} ---------------
		if err != nil {
			zap.L().Warn("ws.dispatch",
				zap.String("client", string(cc.ClientID)),
				zap.String("event", env.Event),
				zap.Error(err),
			)
			conn.sendJSON(errorFrame(err.Error()))
		}
	}
}
