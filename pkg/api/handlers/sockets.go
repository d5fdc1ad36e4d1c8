package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/accessory/schema"
	"github.com/urmzd/hbconsole/pkg/logstream"
	"github.com/urmzd/hbconsole/pkg/session"
)

// writeTimeout bounds a single outbound frame to a slow client.
const writeTimeout = 10 * time.Second

// SocketHandler upgrades connections into real-time sessions
type SocketHandler struct {
	upgrader    websocket.Upgrader
	logSource   logstream.Source
	storagePath string
	client      accessory.Client
	validator   *schema.Validator
	opts        accessory.Options
}

// NewSocketHandler creates a new socket handler
func NewSocketHandler(logSource logstream.Source, storagePath string, client accessory.Client, validator *schema.Validator, opts accessory.Options) *SocketHandler {
	return &SocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logSource:   logSource,
		storagePath: storagePath,
		client:      client,
		validator:   validator,
		opts:        opts,
	}
}

// Log handles GET /ws/log
// @Summary      Log stream
// @Description  WebSocket session streaming the Homebridge log through a pseudo-terminal. Outbound "stdout" events carry terminal output; inbound "resize" events carry {cols, rows}.
// @Tags         sessions
// @Param        cols  query  int  false  "Initial terminal columns (default 80)"
// @Param        rows  query  int  false  "Initial terminal rows (default 24)"
// @Success      101  {string}  string  "Switching Protocols"
// @Router       /ws/log [get]
func (h *SocketHandler) Log(c *gin.Context) {
	h.serve(c, logstream.NewController(h.logSource, h.storagePath))
}

// Accessories handles GET /ws/accessories
// @Summary      Accessory session
// @Description  WebSocket session pushing "accessories-data" snapshots and accepting "accessory-control" set commands
// @Tags         sessions
// @Success      101  {string}  string  "Switching Protocols"
// @Router       /ws/accessories [get]
func (h *SocketHandler) Accessories(c *gin.Context) {
	h.serve(c, accessory.NewReconciler(h.client, h.validator, h.opts))
}

func (h *SocketHandler) serve(c *gin.Context, binder session.Binder) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("WebSocket upgrade failed")
		return
	}

	size := session.ParseSize(c.Query("cols"), c.Query("rows"))
	sess := session.New(&wsTransport{conn: conn}, size)

	sess.Logger().Info().
		Str("path", c.Request.URL.Path).
		Str("client_ip", c.ClientIP()).
		Msg("Session opened")

	sess.Attach(binder)
	sess.Serve(c.Request.Context())

	sess.Logger().Info().Msg("Session closed")
}

// wsTransport adapts a websocket connection to session.Transport.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadJSON(v any) error {
	return t.conn.ReadJSON(v)
}

func (t *wsTransport) WriteJSON(v any) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) Close() error {
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return t.conn.Close()
}
