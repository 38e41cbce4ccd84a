package ginserver

import (
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	BookingApp "carrental/internal/app/handlers/booking"
	"carrental/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	CarID     int64     `json:"car_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := BookingApp.CreateBookingCommand{
		Requester:       user,
		CarID:           req.CarID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[BookingApp.CreateBookingCommand, *BookingApp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	result, err := queries.Ask[BookingApp.ListMyBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, BookingApp.ListMyBookingsQuery{Requester: user})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListAll(c *gin.Context) {
	user, ok := requireAdmin(c)
	if !ok {
		return
	}
	result, err := queries.Ask[BookingApp.ListAllBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, BookingApp.ListAllBookingsQuery{Requester: user})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Approve(c *gin.Context) {
	user, ok := requireAdmin(c)
	if !ok {
		return
	}
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	cmd := BookingApp.ApproveBookingCommand{Requester: user, BookingID: id}
	result, err := commands.Dispatch[BookingApp.ApproveBookingCommand, *BookingApp.ReviewBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Reject(c *gin.Context) {
	user, ok := requireAdmin(c)
	if !ok {
		return
	}
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	cmd := BookingApp.RejectBookingCommand{Requester: user, BookingID: id}
	result, err := commands.Dispatch[BookingApp.RejectBookingCommand, *BookingApp.ReviewBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	cmd := BookingApp.CancelBookingCommand{Requester: user, BookingID: id}
	result, err := commands.Dispatch[BookingApp.CancelBookingCommand, *BookingApp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func bookingIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return 0, false
	}
	return id, true
}
