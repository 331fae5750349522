package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OnlineUsersResponse lists the identities with a live connection.
type OnlineUsersResponse struct {
	Count int      `json:"count" example:"2"`
	Users []string `json:"users"`
}

// OnlineUsers godoc
// @ID          onlineUsers
// @Summary     Online identities
// @Description Returns the identities that currently hold a WebSocket connection, sorted.
// @Tags        Presence
// @Produce     json
// @Success     200  {object}  handlers.OnlineUsersResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Presence unavailable"
// @Router      /users/online [get]
func (h *Handlers) OnlineUsers(c *gin.Context) {
	if h.presence == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "presence is not configured")
		return
	}
	users := h.presence.Snapshot()
	if users == nil {
		users = []string{}
	}
	ok(c, http.StatusOK, OnlineUsersResponse{Count: len(users), Users: users})
}
