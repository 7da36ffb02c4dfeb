package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"roomrelay/internal/http/statshandler"
	"roomrelay/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files
)

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	wsSrv      *ws.WsServer
	stats      statshandler.StatsSource
	ctx        context.Context
	publicDir  string
	specsDir   string
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer, stats statshandler.StatsSource) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		stats:      stats,
		ctx:        ctx,
		publicDir:  "public",
		specsDir:   "api_specs", // written by go generate
	}
}

// Engine builds the gin router; split out so tests can serve it directly.
func (h *httpServer) Engine() *gin.Engine {
	routerEngine := gin.New()

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", h.specsDir)

	// Static page served by the relay since its first version
	routerEngine.StaticFile("/", filepath.Join(h.publicDir, "index.html"))

	// websocket endpoint
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// Operator endpoints
	sh := statshandler.New(h.stats)
	sh.Register(routerEngine)

	return routerEngine
}

// Start blocks serving HTTP until Dispose is called.
func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	zap.L().Info("http_listening", zap.String("addr", listenAddr))

	h.srv = http.Server{
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish.
func (h *httpServer) Dispose() error {
	// The parent ctx is usually already cancelled at this point.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	// Ask the server to shut down.
	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn’t finish in time
	}
	return nil
}
