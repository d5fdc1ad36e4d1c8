package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/hbconsole/pkg/api/types"
	"github.com/urmzd/hbconsole/pkg/bridge"
	"github.com/urmzd/hbconsole/pkg/config"
	"github.com/urmzd/hbconsole/pkg/setupcode"
)

// BridgeManager runs bridge lifecycle operations.
type BridgeManager interface {
	Restart() bridge.RestartResult
	Reset(ctx context.Context) (bridge.Credentials, error)
}

// SetupCoder returns the bridge's pairing setup code.
type SetupCoder interface {
	SetupCode() (string, error)
}

// ServerHandler handles bridge lifecycle endpoints
type ServerHandler struct {
	manager BridgeManager
	coder   SetupCoder
	hb      *config.Homebridge
}

// NewServerHandler creates a new server handler
func NewServerHandler(manager BridgeManager, coder SetupCoder, hb *config.Homebridge) *ServerHandler {
	return &ServerHandler{manager: manager, coder: coder, hb: hb}
}

// Restart handles PUT /server/restart
// @Summary      Restart Homebridge
// @Description  Accepts the request and restarts Homebridge shortly after responding
// @Tags         server
// @Produce      json
// @Success      202  {object}  types.RestartResponse
// @Router       /server/restart [put]
func (h *ServerHandler) Restart(c *gin.Context) {
	result := h.manager.Restart()
	c.JSON(http.StatusAccepted, types.RestartResponse{
		OK:      result.OK,
		Command: result.Command,
	})
}

// Reset handles PUT /server/reset
// @Summary      Reset Homebridge accessory
// @Description  Generates a new bridge pin and username and removes cached accessories and pairings
// @Tags         server
// @Produce      json
// @Success      200  {object}  types.ResetResponse
// @Failure      500  {object}  types.ErrorResponse  "Reset failed"
// @Router       /server/reset [put]
func (h *ServerHandler) Reset(c *gin.Context) {
	creds, err := h.manager.Reset(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "reset_failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, types.ResetResponse{
		OK:       true,
		Username: creds.Username,
		Pin:      creds.Pin,
	})
}

// Pairing handles GET /server/pairing
// @Summary      Get pairing info
// @Description  Returns the X-HM:// setup code used to pair the bridge
// @Tags         server
// @Produce      json
// @Success      200  {object}  types.PairingResponse
// @Failure      404  {object}  types.ErrorResponse  "Bridge has not been set up yet"
// @Failure      500  {object}  types.ErrorResponse  "Pairing info unreadable"
// @Router       /server/pairing [get]
func (h *ServerHandler) Pairing(c *gin.Context) {
	code, err := h.coder.SetupCode()
	if err != nil {
		if errors.Is(err, setupcode.ErrNoPairingInfo) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{
				Error:   "not_found",
				Message: "Pairing info not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "pairing_error",
			Message: err.Error(),
		})
		return
	}

	pin, username := h.hb.Credentials()
	c.JSON(http.StatusOK, types.PairingResponse{
		SetupCode: code,
		Pin:       pin,
		Username:  username,
	})
}
