package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mkravets/travelbooking/internal/domain"
)

// Client consumes the reservation backend's JSON-over-HTTP contract:
// POST /bookings, PATCH /bookings/{id}, GET /bookings. Status strings are
// validated at this boundary so unknown values never enter the store.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type bookingPayload struct {
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
	UpdatedAt   string `json:"updated_at"`
}

func (c *Client) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bookings", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list bookings: unexpected status %d", resp.StatusCode)
	}

	var payloads []bookingPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, err
	}
	bookings := make([]domain.Booking, 0, len(payloads))
	for _, p := range payloads {
		b, err := p.toDomain()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (c *Client) CreateBooking(ctx context.Context, b domain.Booking) (*domain.Booking, error) {
	body, err := json.Marshal(fromDomain(b))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bookings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doBooking(req, http.StatusCreated)
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	body, err := json.Marshal(map[string]string{"status": string(status)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/bookings/"+id, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doBooking(req, http.StatusOK)
}

func (c *Client) doBooking(req *http.Request, wantStatus int) (*domain.Booking, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	var p bookingPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	b, err := p.toDomain()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (p bookingPayload) toDomain() (domain.Booking, error) {
	status, err := domain.ParseStatus(p.Status)
	if err != nil {
		return domain.Booking{}, err
	}
	subject, err := domain.ParseSubjectType(p.SubjectType)
	if err != nil {
		return domain.Booking{}, err
	}
	b := domain.Booking{
		ID:          p.ID,
		Subject:     subject,
		Status:      status,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Email:       p.Email,
		RoomRef:     p.RoomRef,
		CabinRef:    p.CabinRef,
		SeatNumber:  p.SeatNumber,
	}
	b.CheckIn, _ = time.Parse(time.RFC3339, p.CheckIn)
	b.CheckOut, _ = time.Parse(time.RFC3339, p.CheckOut)
	b.CreatedAt, _ = time.Parse(time.RFC3339, p.CreatedAt)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, p.UpdatedAt)
	return b, nil
}

func fromDomain(b domain.Booking) bookingPayload {
	p := bookingPayload{
		ID:          b.ID,
		SubjectType: string(b.Subject),
		Status:      string(b.Status),
		AmountCents: b.AmountCents,
		Currency:    b.Currency,
		Email:       b.Email,
		RoomRef:     b.RoomRef,
		CabinRef:    b.CabinRef,
		SeatNumber:  b.SeatNumber,
	}
	if !b.CheckIn.IsZero() {
		p.CheckIn = b.CheckIn.Format(time.RFC3339)
	}
	if !b.CheckOut.IsZero() {
		p.CheckOut = b.CheckOut.Format(time.RFC3339)
	}
	return p
}
