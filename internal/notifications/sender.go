package notifications

import (
	"context"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"
)

// Sender delivers a confirmation to the traveler.
type Sender interface {
	SendConfirmation(ctx context.Context, job model.NotificationJob) error
}

// LogSender records confirmations through the structured logger. Actual mail
// delivery lives outside this repo.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendConfirmation(ctx context.Context, job model.NotificationJob) error {
	s.log.InfoContext(ctx, "Booking confirmation sent",
		"booking_id", job.BookingID,
		"user_id", job.UserID,
		"tour_id", job.TourID,
		"tour_name", job.TourName,
		"recipient_email", job.RecipientEmail,
	)
	return nil
}
