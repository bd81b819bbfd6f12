package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkravets/travelbooking/api"
	"github.com/mkravets/travelbooking/config"
	"github.com/mkravets/travelbooking/internal/bootstrap"
	"github.com/mkravets/travelbooking/internal/cache"
	"github.com/mkravets/travelbooking/internal/gateway"
	"github.com/mkravets/travelbooking/internal/kafka"
	"github.com/mkravets/travelbooking/internal/payment"
	"github.com/mkravets/travelbooking/internal/repository"
	"github.com/mkravets/travelbooking/internal/service/booking"
	"github.com/mkravets/travelbooking/internal/store"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Auth.SessionTTL)*time.Minute)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	bookings := store.New()
	bookingService := booking.NewService(
		bookingRepo,
		bookings,
		producer,
		cfg.Kafka.BookingEventsTopic,
		time.Duration(cfg.Booking.PendingTTLMinutes)*time.Minute,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	if err := bookingService.RefreshStore(ctx); err != nil {
		log.Fatalf("load bookings: %v", err)
	}

	// the sweep runs in this process so stale checkouts are closed off
	// through the store, not behind its back
	sweep := time.NewTicker(time.Duration(cfg.Booking.ExpirationSweepMinutes) * time.Minute)
	defer sweep.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sweep.C:
				expired, err := bookingService.ExpirePendingBookings(ctx)
				if err != nil {
					log.Printf("expire bookings: %v", err)
					continue
				}
				if len(expired) > 0 {
					log.Printf("expired %d bookings", len(expired))
				}
			}
		}
	}()

	stripeGateway := gateway.NewStripeGateway(cfg.Stripe.APIKey(), cfg.Stripe.SigningSecret())
	checkout := payment.NewManager(bookings)

	deps := bootstrap.Deps{
		Bookings: api.NewBookingHandler(bookingService),
		Payments: api.NewPaymentHandler(
			bookingService,
			stripeGateway,
			checkout,
			redisCache,
			time.Duration(cfg.Booking.IntentMarkerTTL)*time.Minute,
		),
		Dashboard: api.NewDashboardHandler(bookingService),
		Sessions:  api.NewSessionHandler(redisCache),
		Roles:     redisCache,
	}

	if err := bootstrap.Run(ctx, cfg, deps); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
