package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkravets/travelbooking/config"
	"github.com/mkravets/travelbooking/internal/email"
	"github.com/mkravets/travelbooking/internal/kafka"
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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	log.Printf("notification worker consuming %s", cfg.Kafka.NotificationsTopic)
	if err := consumer.Consume(ctx, func(ctx context.Context, event kafka.BookingEvent) error {
		return emailSender.Send(ctx, event)
	}); err != nil && ctx.Err() == nil {
		log.Fatalf("consumer stopped: %v", err)
	}
}
