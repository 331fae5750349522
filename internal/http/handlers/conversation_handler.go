// Conversation HTTP handlers.
//
// GET /messages/{userA}/{userB} returns the history between two identities in
// either direction, oldest first. Responses carry a weak ETag derived from the
// message count and the latest update; a matching If-None-Match yields 304.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-messaging-backend/internal/domain"
	"github.com/tbourn/go-messaging-backend/internal/services"
	"github.com/tbourn/go-messaging-backend/internal/utils"
)

const (
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 200
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ConversationResponse contains a page of messages and pagination metadata.
type ConversationResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// conversationETag is order-independent in the two participants.
func conversationETag(a, b string, count, ts int64) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf(`W/"messages:%s:%s:%d:%d"`, a, b, count, ts)
}

// GetConversation godoc
// @ID          getConversation
// @Summary     Conversation history
// @Description Returns the messages exchanged between two identities, oldest first.
// @Tags        Messages
// @Produce     json
//
// @Param       userA          path    string  true   "First participant"
// @Param       userB          path    string  true   "Second participant"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(200) default(50)
// @Param       If-None-Match  header  string  false  "ETag from a previous response"
//
// @Success     200  {object}  handlers.ConversationResponse
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages/{userA}/{userB} [get]
func (h *Handlers) GetConversation(c *gin.Context) {
	if h.history == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "history is not configured")
		return
	}
	ctx := c.Request.Context()

	a, errA := services.NormalizeIdentity(c.Param("userA"))
	b, errB := services.NormalizeIdentity(c.Param("userB"))
	if errA != nil || errB != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "participants must be 1-64 bytes")
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.history.Stats(ctx, a, b); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := conversationETag(a, b, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"), defaultHistoryPageSize, maxHistoryPageSize)

	items, total, err := h.history.HistoryPage(ctx, a, b, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load conversation")
		}
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ConversationResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
