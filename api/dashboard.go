package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/travelbooking/internal/access"
	"github.com/mkravets/travelbooking/internal/service/booking"
)

// DashboardHandler serves the account views gated by role.
type DashboardHandler struct {
	service booking.BookingUseCase
}

type dashboardResponse struct {
	Email    string            `json:"email"`
	Role     string            `json:"role"`
	Bookings []bookingResponse `json:"bookings"`
}

func NewDashboardHandler(service booking.BookingUseCase) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.overview)
}

func (h *DashboardHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/bookings", h.allBookings)
}

// overview lists the principal's own bookings.
func (h *DashboardHandler) overview(c *gin.Context) {
	p := access.CurrentPrincipal(c)
	bookings, err := h.service.ListBookings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	own := make([]bookingResponse, 0)
	for _, b := range bookings {
		if b.Email == p.Email {
			own = append(own, toResponse(b))
		}
	}
	c.JSON(http.StatusOK, dashboardResponse{Email: p.Email, Role: p.Role, Bookings: own})
}

func (h *DashboardHandler) allBookings(c *gin.Context) {
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
