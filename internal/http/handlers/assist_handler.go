// AI assistance HTTP handlers.
//
//   - POST /ai/suggest  {conversation} -> {suggestions}
//   - POST /ai/analyze  {message}      -> {sentiment, confidence}
//
// Both proxy an external completion model through services.AssistService. An
// unconfigured model yields 503, a failing one 502.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-messaging-backend/internal/services"
)

// SuggestRequest is the JSON payload for reply suggestions.
type SuggestRequest struct {
	// Conversation is the recent transcript the suggestions should answer.
	Conversation string `json:"conversation" binding:"required,max=8000" example:"alice: are we still on for tonight?"`
}

// SuggestResponse holds up to three suggested replies.
type SuggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

// AnalyzeRequest is the JSON payload for sentiment analysis.
type AnalyzeRequest struct {
	Message string `json:"message" binding:"required,max=8000" example:"this is the worst day ever"`
}

// assistError maps AssistService errors; it is shared by both endpoints.
func assistError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNotConfigured):
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "ai assistance is not configured")
	case errors.Is(err, services.ErrUpstream):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, "ai provider failed")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// Suggest godoc
// @ID          suggestReplies
// @Summary     Suggest replies
// @Description Asks the completion model for up to three short replies to the conversation.
// @Tags        AI
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SuggestRequest  true  "Conversation"
// @Success     200   {object}  handlers.SuggestResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502   {object}  handlers.ErrorResponse  "Upstream failed"
// @Failure     503   {object}  handlers.ErrorResponse  "Not configured"
// @Router      /ai/suggest [post]
func (h *Handlers) Suggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation required")
		return
	}
	if h.assist == nil {
		assistError(c, services.ErrNotConfigured)
		return
	}

	out, err := h.assist.Suggest(c.Request.Context(), req.Conversation)
	if err != nil {
		assistError(c, err)
		return
	}
	if out == nil {
		out = []string{}
	}
	ok(c, http.StatusOK, SuggestResponse{Suggestions: out})
}

// Analyze godoc
// @ID          analyzeSentiment
// @Summary     Analyze sentiment
// @Description Labels a message as negative or neutral.
// @Tags        AI
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.AnalyzeRequest  true  "Message"
// @Success     200   {object}  services.Sentiment
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502   {object}  handlers.ErrorResponse  "Upstream failed"
// @Failure     503   {object}  handlers.ErrorResponse  "Not configured"
// @Router      /ai/analyze [post]
func (h *Handlers) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	if h.assist == nil {
		assistError(c, services.ErrNotConfigured)
		return
	}

	s, err := h.assist.Analyze(c.Request.Context(), req.Message)
	if err != nil {
		assistError(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}
