package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/travelbooking/internal/domain"
	"github.com/mkravets/travelbooking/internal/repository"
	"github.com/mkravets/travelbooking/internal/service/booking"
	"github.com/mkravets/travelbooking/internal/store"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type bookingResponse struct {
	ID          string `json:"id"`
	SubjectType string `json:"subject_type"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	RoomRef     string `json:"room_ref,omitempty"`
	CheckIn     string `json:"check_in,omitempty"`
	CheckOut    string `json:"check_out,omitempty"`
	CabinRef    string `json:"cabin_ref,omitempty"`
	SeatNumber  int    `json:"seat_number,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.updateStatus)
	router.DELETE("/:id", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toResponse(*created))
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.ListBookings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, store.ErrBookingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(*b))
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.UpdateBookingStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		if errors.Is(err, store.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(*b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toResponse(*b))
}

func toResponse(b domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:          b.ID,
		SubjectType: string(b.Subject),
		Status:      string(b.Status),
		AmountCents: b.AmountCents,
		Currency:    b.Currency,
		Email:       b.Email,
		RoomRef:     b.RoomRef,
		CabinRef:    b.CabinRef,
		SeatNumber:  b.SeatNumber,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
	}
	if !b.CheckIn.IsZero() {
		resp.CheckIn = b.CheckIn.Format(time.RFC3339)
	}
	if !b.CheckOut.IsZero() {
		resp.CheckOut = b.CheckOut.Format(time.RFC3339)
	}
	return resp
}
