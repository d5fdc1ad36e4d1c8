package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/api/types"
)

// bridgeError writes the response for an error returned by the bridge
// client.
func bridgeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, accessory.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{
			Error:   "bridge_not_configured",
			Message: "config.json does not define a port under bridge.port",
		})
	case errors.Is(err, accessory.ErrAuthRequired):
		c.JSON(http.StatusBadGateway, types.ErrorResponse{
			Error:   "insecure_mode_required",
			Message: "Homebridge must be running in insecure mode to view and control accessories",
		})
	case errors.Is(err, accessory.ErrNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, types.ErrorResponse{
			Error:   "timeout",
			Message: "Request timed out waiting for Homebridge",
		})
	default:
		c.JSON(http.StatusBadGateway, types.ErrorResponse{
			Error:   "bridge_error",
			Message: err.Error(),
		})
	}
}

// bridgeStatus names the bridge state for a ListServices result.
func bridgeStatus(err error) string {
	switch {
	case err == nil:
		return "reachable"
	case errors.Is(err, accessory.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, accessory.ErrAuthRequired):
		return "unauthorized"
	default:
		return "unreachable"
	}
}
