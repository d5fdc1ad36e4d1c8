package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/api/types"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	client  accessory.Client
	timeout time.Duration
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(client accessory.Client, timeout time.Duration) *HealthHandler {
	return &HealthHandler{client: client, timeout: timeout}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health status of the API and whether Homebridge answers
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	_, err := h.client.ListServices(ctx)
	bridgeState := bridgeStatus(err)

	status := "healthy"
	httpStatus := http.StatusOK

	if bridgeState != "reachable" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Bridge:    bridgeState,
		Timestamp: time.Now(),
	})
}
