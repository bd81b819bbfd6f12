package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/travelbooking/internal/domain"
	"github.com/mkravets/travelbooking/internal/store"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func TestService_CreateBooking_Success(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	bookings := store.New()

	service := NewService(mockRepo, bookings, mockProducer, "booking-events", 30*time.Minute)

	ctx := context.Background()
	input := CreateBookingInput{
		SubjectType: "HOTEL",
		AmountCents: 29900,
		Currency:    "USD",
		Email:       "guest@example.com",
		RoomRef:     "deluxe-12",
		CheckIn:     "2026-09-01T14:00:00Z",
		CheckOut:    "2026-09-05T11:00:00Z",
	}

	// the service decides lifecycle state; the repo only persists it
	mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Run(func(args mock.Arguments) {
		assert.Equal(t, domain.BookingStatusPending, args.Get(1).(*domain.Booking).Status)
	}).Return(nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(nil).Once()

	created, err := service.CreateBooking(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.BookingStatusPending, created.Status)
	assert.Equal(t, domain.SubjectHotel, created.Subject)
	assert.Equal(t, int64(29900), created.AmountCents)

	// the new booking is visible in the store
	got, ok := bookings.Get(created.ID)
	assert.True(t, ok)
	assert.Equal(t, domain.BookingStatusPending, got.Status)

	mockRepo.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestService_CreateBooking_ValidationErrors(t *testing.T) {
	service := NewService(&MockBookingRepository{}, store.New(), nil, "", 30*time.Minute)
	ctx := context.Background()

	testCases := []struct {
		name        string
		input       CreateBookingInput
		expectedErr string
	}{
		{
			name:        "unknown subject type",
			input:       CreateBookingInput{SubjectType: "CRUISE", AmountCents: 100, Currency: "USD", Email: "a@b.c"},
			expectedErr: `unknown subject type "CRUISE"`,
		},
		{
			name:        "zero amount",
			input:       CreateBookingInput{SubjectType: "FLIGHT", AmountCents: 0, Currency: "USD", Email: "a@b.c"},
			expectedErr: "amount must be positive",
		},
		{
			name:        "missing email",
			input:       CreateBookingInput{SubjectType: "FLIGHT", AmountCents: 100, Currency: "USD"},
			expectedErr: "email is required",
		},
		{
			name:        "missing currency",
			input:       CreateBookingInput{SubjectType: "FLIGHT", AmountCents: 100, Email: "a@b.c"},
			expectedErr: "currency is required",
		},
		{
			name:        "hotel without dates",
			input:       CreateBookingInput{SubjectType: "HOTEL", AmountCents: 100, Currency: "USD", Email: "a@b.c"},
			expectedErr: "check_in must be RFC3339",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateBooking(ctx, tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.expectedErr, err.Error())
		})
	}
}

func TestService_UpdateBookingStatus_PersistsAndPublishes(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	bookings := store.New()

	service := NewService(mockRepo, bookings, mockProducer, "booking-events", 30*time.Minute)
	require.NoError(t, bookings.Add(domain.Booking{ID: "B1", Subject: domain.SubjectHotel, Status: domain.BookingStatusPending, AmountCents: 29900, Currency: "USD"}))

	confirmed := &domain.Booking{ID: "B1", Status: domain.BookingStatusConfirmed}
	mockRepo.On("UpdateStatus", mock.Anything, "B1", domain.BookingStatusConfirmed).Return(confirmed, nil).Once()
	mockProducer.On("Publish", mock.Anything, "booking-events", "B1", mock.Anything).Return(nil).Once()

	b, err := service.UpdateBookingStatus(context.Background(), "B1", domain.BookingStatusConfirmed)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	mockRepo.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestService_UpdateBookingStatus_IgnoredTransition(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	bookings := store.New()

	service := NewService(mockRepo, bookings, mockProducer, "booking-events", 30*time.Minute)
	require.NoError(t, bookings.Add(domain.Booking{ID: "B1", Subject: domain.SubjectHotel, Status: domain.BookingStatusCancelled, AmountCents: 29900, Currency: "USD"}))

	// no repo update and no event for a stale transition
	b, err := service.UpdateBookingStatus(context.Background(), "B1", domain.BookingStatusConfirmed)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_UpdateBookingStatus_NotFound(t *testing.T) {
	service := NewService(&MockBookingRepository{}, store.New(), nil, "", 30*time.Minute)

	_, err := service.UpdateBookingStatus(context.Background(), "missing", domain.BookingStatusConfirmed)
	assert.ErrorIs(t, err, store.ErrBookingNotFound)
}

func TestService_RemoveBooking_DeletesFromRepo(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	bookings := store.New()

	service := NewService(mockRepo, bookings, nil, "", 30*time.Minute)
	require.NoError(t, bookings.Add(domain.Booking{ID: "B1", Subject: domain.SubjectFlight, Status: domain.BookingStatusPending, AmountCents: 100, Currency: "USD"}))

	mockRepo.On("Delete", mock.Anything, "B1").Return(nil).Once()

	require.NoError(t, service.RemoveBooking(context.Background(), "B1"))
	_, ok := bookings.Get("B1")
	assert.False(t, ok)
	mockRepo.AssertExpectations(t)

	// removing again is a no-op
	require.NoError(t, service.RemoveBooking(context.Background(), "B1"))
}

func TestService_ExpirePendingBookings(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}

	service := NewService(mockRepo, store.New(), mockProducer, "booking-events", 30*time.Minute)

	expired := []domain.Booking{
		{ID: "B1", Status: domain.BookingStatusCancelled},
		{ID: "B2", Status: domain.BookingStatusCancelled},
	}
	mockRepo.On("ExpirePendingBefore", mock.Anything, mock.AnythingOfType("time.Time")).Return(expired, nil).Once()
	mockProducer.On("Publish", mock.Anything, "booking-events", "B1", mock.Anything).Return(nil).Once()
	mockProducer.On("Publish", mock.Anything, "booking-events", "B2", mock.Anything).Return(nil).Once()

	got, err := service.ExpirePendingBookings(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 2)
	mockRepo.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestService_ExpirePendingBookings_SweepsThroughStore(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	bookings := store.New()

	service := NewService(mockRepo, bookings, mockProducer, "booking-events", 30*time.Minute)

	stale := domain.Booking{ID: "B1", Subject: domain.SubjectHotel, Status: domain.BookingStatusPending, AmountCents: 100, Currency: "USD", CreatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := domain.Booking{ID: "B2", Subject: domain.SubjectHotel, Status: domain.BookingStatusPending, AmountCents: 100, Currency: "USD", CreatedAt: time.Now()}
	require.NoError(t, bookings.Add(stale))
	require.NoError(t, bookings.Add(fresh))

	// the store observer persists and publishes the cancellation; the
	// database sweep finds nothing left to do for store-resident rows
	cancelled := &domain.Booking{ID: "B1", Status: domain.BookingStatusCancelled}
	mockRepo.On("UpdateStatus", mock.Anything, "B1", domain.BookingStatusCancelled).Return(cancelled, nil).Once()
	mockProducer.On("Publish", mock.Anything, "booking-events", "B1", mock.Anything).Return(nil).Once()
	mockRepo.On("ExpirePendingBefore", mock.Anything, mock.AnythingOfType("time.Time")).Return([]domain.Booking{}, nil).Once()

	expired, err := service.ExpirePendingBookings(context.Background())

	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "B1", expired[0].ID)

	got, _ := bookings.Get("B1")
	assert.Equal(t, domain.BookingStatusCancelled, got.Status)
	still, _ := bookings.Get("B2")
	assert.Equal(t, domain.BookingStatusPending, still.Status)

	// a payment success landing after the sweep can no longer confirm it
	applied, err := bookings.UpdateStatus("B1", domain.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.False(t, applied)

	mockRepo.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestService_RefreshStore(t *testing.T) {
	mockRepo := &MockBookingRepository{}
	bookings := store.New()
	service := NewService(mockRepo, bookings, nil, "", 30*time.Minute)

	require.NoError(t, bookings.Add(domain.Booking{ID: "stale", Status: domain.BookingStatusPending}))

	fresh := []domain.Booking{
		{ID: "B1", Status: domain.BookingStatusPending},
		{ID: "B2", Status: domain.BookingStatusConfirmed},
	}
	mockRepo.On("List", mock.Anything).Return(fresh, nil).Once()

	require.NoError(t, service.RefreshStore(context.Background()))

	_, ok := bookings.Get("stale")
	assert.False(t, ok)
	assert.Len(t, bookings.List(), 2)
	mockRepo.AssertExpectations(t)
}
