// Payment HTTP handlers.
//
// POST /payments/send creates a card payment intent and returns its client
// secret. With an Idempotency-Key the first successful response is recorded
// for (caller, "payments", key); a retry within the TTL gets the recorded body
// back with Idempotency-Replayed: true and no new intent is created.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-messaging-backend/internal/http/middleware"
	"github.com/tbourn/go-messaging-backend/internal/services"
)

// PaymentScope namespaces payment idempotency keys.
const PaymentScope = "payments"

// SendPaymentRequest is the JSON payload for a transfer.
type SendPaymentRequest struct {
	// Amount in major units (dollars); must be > 0.
	Amount float64 `json:"amount" binding:"required,gt=0" example:"12.5"`
	// Receiver is the identity being paid.
	Receiver string `json:"receiver" binding:"required,max=64" example:"bob"`
}

// SendPaymentResponse carries the client secret the payer confirms with.
type SendPaymentResponse struct {
	ClientSecret string `json:"clientSecret" example:"pi_123_secret_456"`
}

// SendPayment godoc
// @ID          sendPayment
// @Summary     Send a payment
// @Description Creates a card payment intent for amount*100 cents and returns its client secret.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string                       false  "Caller identity"
// @Param       Idempotency-Key  header  string                       false  "Idempotency key for safe retries"
// @Param       body             body    handlers.SendPaymentRequest  true   "Payment"
//
// @Success     200  {object}  handlers.SendPaymentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Not configured"
// @Router      /payments/send [post]
func (h *Handlers) SendPayment(c *gin.Context) {
	ctx := c.Request.Context()

	var req SendPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount (> 0) and receiver required")
		return
	}
	if h.payments == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "payments are not configured")
		return
	}

	caller := middleware.UserID(c)
	idemKey, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && h.replays != nil {
		rec, err := h.replays.Lookup(ctx, caller, PaymentScope, idemKey)
		switch {
		case err == nil:
			replay(c, rec.Status, rec.Body)
			return
		case !errors.Is(err, services.ErrNoReplay):
			middleware.LoggerFrom(c).Warn().Err(err).Msg("replay lookup failed")
		}
	}

	p, err := h.payments.Send(ctx, req.Receiver, req.Amount, idemKey)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrNotConfigured):
			fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "payments are not configured")
		case errors.Is(err, services.ErrUpstream):
			fail(c, http.StatusBadGateway, ErrCodePaymentFailed, "payment provider failed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		}
		return
	}

	body, err := json.Marshal(SendPaymentResponse{ClientSecret: p.ClientSecret})
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		return
	}

	// Best effort: a failed record only costs the replay.
	if hasKey && h.replays != nil {
		if err := h.replays.Record(ctx, caller, PaymentScope, idemKey, http.StatusOK, string(body)); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("replay record failed")
		}
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
