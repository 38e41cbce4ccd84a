package ginserver

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/app/commands"
	PaymentApp "carrental/internal/app/handlers/payment"
	"carrental/internal/app/queries"
	"carrental/internal/infra/payment"
)

const signatureHeader = "X-Payment-Signature"

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Verifier payment.WebhookVerifier
	Logger   *slog.Logger
}

func (h PaymentHandler) CreateIntent(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := paymentBookingIDParam(c)
	if !ok {
		return
	}
	cmd := PaymentApp.CreateIntentCommand{Requester: user, BookingID: id}
	result, err := commands.Dispatch[PaymentApp.CreateIntentCommand, *PaymentApp.CreateIntentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PaymentHandler) Confirm(c *gin.Context) {
	user, ok := requireAdmin(c)
	if !ok {
		return
	}
	id, ok := paymentBookingIDParam(c)
	if !ok {
		return
	}
	cmd := PaymentApp.ConfirmPaymentCommand{Requester: user, BookingID: id}
	result, err := commands.Dispatch[PaymentApp.ConfirmPaymentCommand, *PaymentApp.ReconcileOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) Status(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := paymentBookingIDParam(c)
	if !ok {
		return
	}
	result, err := queries.Ask[PaymentApp.StatusQuery, PaymentApp.StatusResult](c.Request.Context(), h.Queries, PaymentApp.StatusQuery{Requester: user, BookingID: id})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Webhook authenticates the processor callback over the raw body and feeds
// the decoded notification into reconciliation. A non-2xx response makes the
// processor retry, so only reconciliation errors surface as 500.
func (h PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	note, err := h.Verifier.Verify(body, c.GetHeader(signatureHeader))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("webhook rejected", "error", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := PaymentApp.NotificationCommand{
		BookingID: note.BookingID,
		IntentID:  note.IntentID,
		Succeeded: note.Succeeded,
	}
	result, err := commands.Dispatch[PaymentApp.NotificationCommand, *PaymentApp.ReconcileOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("webhook reconcile failed", "booking_id", note.BookingID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func paymentBookingIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("bookingId"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return 0, false
	}
	return id, true
}
