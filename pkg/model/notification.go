package model

import "time"

const JobKindSendConfirmation = "send-confirmation"

// NotificationJob is handed to the job queue once a booking is committed.
// It is never modified after enqueue.
type NotificationJob struct {
	BookingID      string `json:"bookingId" bson:"booking_id"`
	UserID         string `json:"userId" bson:"user_id"`
	TourID         string `json:"tourId" bson:"tour_id"`
	RecipientEmail string `json:"recipientEmail" bson:"recipient_email"`
	TourName       string `json:"tourName" bson:"tour_name"`
	JobKind        string `json:"jobKind" bson:"job_kind"`
}

func NewConfirmationJob(booking *Booking, tour *Tour, recipientEmail string) NotificationJob {
	return NotificationJob{
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		TourID:         booking.TourID,
		RecipientEmail: recipientEmail,
		TourName:       tour.Name,
		JobKind:        JobKindSendConfirmation,
	}
}

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
)

// OutboxEntry holds a job whose enqueue failed after its booking was stored.
type OutboxEntry struct {
	ID        string          `json:"id,omitempty" bson:"_id,omitempty"`
	Job       NotificationJob `json:"job" bson:"job"`
	Status    string          `json:"status" bson:"status"`
	Attempts  int             `json:"attempts" bson:"attempts"`
	LastError string          `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" bson:"updated_at"`
}
