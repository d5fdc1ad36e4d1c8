package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/api/types"
	"github.com/urmzd/hbconsole/pkg/db"
)

// AccessoriesHandler handles accessory snapshot and layout endpoints
type AccessoriesHandler struct {
	client    accessory.Client
	layouts   db.LayoutStore
	validator *schema.Validator
	timeout   time.Duration
}

// NewAccessoriesHandler creates a new accessories handler
func NewAccessoriesHandler(client accessory.Client, layouts db.LayoutStore, validator *schema.Validator, timeout time.Duration) *AccessoriesHandler {
	return &AccessoriesHandler{
		client:    client,
		layouts:   layouts,
		validator: validator,
		timeout:   timeout,
	}
}

// ListAccessories handles GET /accessories
// @Summary      List accessories
// @Description  Returns a one-off snapshot of every controllable service on the bridge
// @Tags         accessories
// @Produce      json
// @Success      200  {object}  types.ListAccessoriesResponse
// @Failure      502  {object}  types.ErrorResponse  "Homebridge error"
// @Failure      503  {object}  types.ErrorResponse  "Bridge port not configured"
// @Failure      504  {object}  types.ErrorResponse  "Request timed out"
// @Router       /accessories [get]
func (h *AccessoriesHandler) ListAccessories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	services, err := h.client.ListServices(ctx)
	if err != nil {
		bridgeError(c, err)
		return
	}
	if services == nil {
		services = []accessory.Service{}
	}

	c.JSON(http.StatusOK, types.ListAccessoriesResponse{
		Accessories: services,
		Count:       len(services),
	})
}

// GetLayout handles GET /accessories/layout/:user
// @Summary      Get accessory layout
// @Description  Returns the user's room layout, or a single default room when none was saved
// @Tags         accessories
// @Produce      json
// @Param        user  path      string  true  "UI username"
// @Success      200   {array}   db.Room
// @Router       /accessories/layout/{user} [get]
func (h *AccessoriesHandler) GetLayout(c *gin.Context) {
	c.JSON(http.StatusOK, db.LayoutOrDefault(c.Request.Context(), h.layouts, c.Param("user")))
}

// SaveLayout handles PUT /accessories/layout/:user
// @Summary      Save accessory layout
// @Description  Replaces the user's room layout
// @Tags         accessories
// @Accept       json
// @Produce      json
// @Param        user     path      string   true  "UI username"
// @Param        request  body      []db.Room  true  "Rooms in display order"
// @Success      200      {array}   db.Room
// @Failure      400      {object}  types.ErrorResponse  "Invalid layout"
// @Failure      500      {object}  types.ErrorResponse  "Storage error"
// @Router       /accessories/layout/{user} [put]
func (h *AccessoriesHandler) SaveLayout(c *gin.Context) {
	user := c.Param("user")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	if err := h.validator.ValidateJSON(schema.AccessoryLayout, body); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	var layout db.Layout
	if err := json.Unmarshal(body, &layout); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	if err := h.layouts.Save(c.Request.Context(), user, layout); err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "storage_error",
			Message: err.Error(),
		})
		return
	}

	log.Info().Str("user", user).Msg("Accessory layout changes saved")
	c.JSON(http.StatusOK, layout)
}
