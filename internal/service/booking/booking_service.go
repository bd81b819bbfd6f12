package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/travelbooking/internal/domain"
	"github.com/mkravets/travelbooking/internal/kafka"
	"github.com/mkravets/travelbooking/internal/repository"
	"github.com/mkravets/travelbooking/internal/store"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	ListBookings(ctx context.Context) ([]domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (*domain.Booking, error)
	RemoveBooking(ctx context.Context, id string) error
	RefreshStore(ctx context.Context) error
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Service keeps the in-memory booking store, the database and the event
// stream consistent. All status changes flow through the store, whose
// observer persists and publishes them exactly once per applied change.
type Service struct {
	repo               repository.BookingRepository
	store              *store.BookingStore
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	pendingTTL         time.Duration
}

type CreateBookingInput struct {
	SubjectType string `json:"subject_type"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	RoomRef     string `json:"room_ref"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	CabinRef    string `json:"cabin_ref"`
	SeatNumber  int    `json:"seat_number"`
}

type ServiceOption func(*Service)

func WithNotificationsTopic(topic string) ServiceOption {
	return func(s *Service) {
		s.notificationsTopic = topic
	}
}

func NewService(
	repo repository.BookingRepository,
	bookings *store.BookingStore,
	producer Producer,
	eventsTopic string,
	pendingTTL time.Duration,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		repo:        repo,
		store:       bookings,
		producer:    producer,
		eventsTopic: eventsTopic,
		pendingTTL:  pendingTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store != nil {
		s.store.Subscribe(s.onStoreEvent)
	}
	return s
}

func (s *Service) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	subject, err := domain.ParseSubjectType(input.SubjectType)
	if err != nil {
		return nil, err
	}
	if input.AmountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if input.Email == "" {
		return nil, errors.New("email is required")
	}
	if input.Currency == "" {
		return nil, errors.New("currency is required")
	}

	b := &domain.Booking{
		ID:          uuid.NewString(),
		Subject:     subject,
		Status:      domain.BookingStatusPending,
		AmountCents: input.AmountCents,
		Currency:    input.Currency,
		Email:       input.Email,
		RoomRef:     input.RoomRef,
		CabinRef:    input.CabinRef,
		SeatNumber:  input.SeatNumber,
	}
	if subject == domain.SubjectHotel {
		if b.CheckIn, err = time.Parse(time.RFC3339, input.CheckIn); err != nil {
			return nil, errors.New("check_in must be RFC3339")
		}
		if b.CheckOut, err = time.Parse(time.RFC3339, input.CheckOut); err != nil {
			return nil, errors.New("check_out must be RFC3339")
		}
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.Add(*b); err != nil {
			return nil, err
		}
	}
	s.publish(ctx, "booking_created", *b, "")
	return b, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if s.store != nil {
		if b, ok := s.store.Get(id); ok {
			return &b, nil
		}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return s.repo.List(ctx)
}

// UpdateBookingStatus applies a transition via the store. An illegal
// transition is ignored and the current record is returned unchanged.
func (s *Service) UpdateBookingStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	applied, err := s.store.UpdateStatus(id, status)
	if err != nil {
		return nil, err
	}
	if !applied {
		log.Printf("booking %s: transition to %s ignored", id, status)
	}
	b, ok := s.store.Get(id)
	if !ok {
		return nil, store.ErrBookingNotFound
	}
	return &b, nil
}

func (s *Service) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.UpdateBookingStatus(ctx, id, domain.BookingStatusCancelled)
}

func (s *Service) RemoveBooking(ctx context.Context, id string) error {
	s.store.Remove(id)
	return nil
}

// RefreshStore replaces the in-memory set from the database atomically.
func (s *Service) RefreshStore(ctx context.Context) error {
	return s.store.Refresh(ctx, repoLister{s.repo})
}

// ExpirePendingBookings cancels pending bookings whose payment never
// completed within the TTL. Bookings held in the store are cancelled
// through it, so the observer persists the change and an open checkout
// can no longer confirm them; the database sweep then catches only rows
// this process never loaded, which cannot have a live checkout here.
func (s *Service) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	deadline := time.Now().Add(-s.pendingTTL)

	var expired []domain.Booking
	if s.store != nil {
		for _, b := range s.store.List() {
			if b.Status != domain.BookingStatusPending || b.CreatedAt.After(deadline) {
				continue
			}
			applied, err := s.store.UpdateStatus(b.ID, domain.BookingStatusCancelled)
			if err != nil || !applied {
				continue
			}
			b.Status = domain.BookingStatusCancelled
			expired = append(expired, b)
		}
	}

	swept, err := s.repo.ExpirePendingBefore(ctx, deadline)
	if err != nil {
		return expired, err
	}
	for _, b := range swept {
		s.publish(ctx, "booking_expired", b, "")
		expired = append(expired, b)
	}
	return expired, nil
}

// onStoreEvent persists and publishes store mutations. The store only
// emits a status change when the transition was actually applied, so this
// fires exactly once per lifecycle step.
func (s *Service) onStoreEvent(ev store.Event) {
	ctx := context.Background()
	switch ev.Type {
	case store.EventStatusChanged:
		if _, err := s.repo.UpdateStatus(ctx, ev.Booking.ID, ev.Booking.Status); err != nil {
			log.Printf("persist status for booking %s: %v", ev.Booking.ID, err)
		}
		s.publish(ctx, eventTypeFor(ev.Booking.Status), ev.Booking, "")
	case store.EventRemoved:
		if err := s.repo.Delete(ctx, ev.Booking.ID); err != nil {
			log.Printf("delete booking %s: %v", ev.Booking.ID, err)
		}
	}
}

func eventTypeFor(status domain.BookingStatus) string {
	switch status {
	case domain.BookingStatusConfirmed:
		return "booking_confirmed"
	case domain.BookingStatusCancelled:
		return "booking_cancelled"
	case domain.BookingStatusFailed:
		return "booking_payment_failed"
	}
	return "booking_updated"
}

func (s *Service) publish(ctx context.Context, eventType string, b domain.Booking, reason string) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		SubjectType: string(b.Subject),
		Status:      string(b.Status),
		AmountCents: b.AmountCents,
		Currency:    b.Currency,
		Email:       b.Email,
		Reason:      reason,
		OccurredAt:  time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, b.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %s: %v", eventType, b.ID, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, b.ID, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for booking %s: %v", eventType, b.ID, err)
		}
	}
}

type repoLister struct {
	repo repository.BookingRepository
}

func (l repoLister) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return l.repo.List(ctx)
}

var _ BookingUseCase = (*Service)(nil)
