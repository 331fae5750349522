package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/tbourn/go-messaging-backend/internal/realtime"
)

// Handler upgrades HTTP requests to WebSocket connections served by a
// realtime.Router.
type Handler struct {
	router   *realtime.Router
	upgrader websocket.Upgrader
	opts     Options
	log      zerolog.Logger
}

// NewHandler returns a Handler. allowedOrigins follows the CORS setting:
// empty or containing "*" accepts any Origin.
func NewHandler(router *realtime.Router, opts Options, allowedOrigins []string, log zerolog.Logger) *Handler {
	h := &Handler{
		router: router,
		opts:   opts.withDefaults(),
		log:    log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || lo.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	norm := lo.Map(allowed, func(o string, _ int) string { return strings.ToLower(strings.TrimRight(o, "/")) })
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients
			return true
		}
		return lo.Contains(norm, strings.ToLower(origin))
	}
}

// Serve is the gin handler for the upgrade route. An optional identity query
// parameter joins the connection immediately.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(conn, h.opts, h.log)
	ctx := c.Request.Context()
	if identity := c.Query("identity"); identity != "" {
		h.router.Attach(client)
		_ = h.router.HandleJoin(ctx, client, identity)
	}
	client.run(ctx, h.router)
}
