package email

import (
	"context"
	"log"

	"github.com/mkravets/travelbooking/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

// Send delivers a booking notification. Stubbed to a log line until the
// mail provider account is provisioned.
func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	log.Printf("send email to %s about %s for %s booking %s", event.Email, event.Type, event.SubjectType, event.BookingID)
	return nil
}
