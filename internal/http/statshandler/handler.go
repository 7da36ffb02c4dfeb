package statshandler

import (
	"context"
	"net/http"

	"roomrelay/internal/rooms"

	"github.com/gin-gonic/gin"
)

type StatsSource interface {
	Snapshot(ctx context.Context) (rooms.Stats, error)
}

type Handler struct {
	src StatsSource
}

func New(src StatsSource) *Handler { return &Handler{src: src} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.GET("/stats", h.stats)
}

// @Summary		Liveness probe
// @Success		200	{object}	HealthResponse
// @Router			/healthz [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// @Summary		Relay statistics
// @Description	Room and client counts plus room sizes, largest first. Room identifiers are not exposed.
// @Success		200	{object}	StatsResponse
// @Failure		503	{object}	ErrorResponse
// @Router			/stats [get]
func (h *Handler) stats(c *gin.Context) {
	st, err := h.src.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		Rooms:     st.Rooms,
		Clients:   st.Clients,
		Connected: st.Connected,
		RoomSizes: st.RoomSizes,
	})
}
