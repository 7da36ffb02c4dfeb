package http_server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomrelay/internal/eventlog"
	"roomrelay/internal/rooms"
	"roomrelay/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_WiresRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, err := rooms.NewHandler(rooms.DefaultLimits(), eventlog.Nop, nil)
	require.NoError(t, err)
	hub := ws.NewHub(handler, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-hub.Done()
	}()
	go hub.Run(ctx)

	srv := NewHttpServer(ctx, 0, ws.NewWsServer(hub, ws.Options{}), hub)
	srv.publicDir = "../../../public"
	srv.specsDir = "../../../api_specs"
	ts := httptest.NewServer(srv.Engine())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api-specs/swagger.json")
	require.NoError(t, err)
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	resp.Body.Close()
	assert.Contains(t, doc.Paths, "/healthz")
	assert.Contains(t, doc.Paths, "/stats")

	resp, err = http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(ws.Envelope{Event: ws.EventLogin}))

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/stats")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		st, err := hub.Snapshot(context.Background())
		return err == nil && resp.StatusCode == http.StatusOK && st.Clients == 1
	}, 2*time.Second, 20*time.Millisecond)
}
