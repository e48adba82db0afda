package model

import (
	"time"
)

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

type Booking struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID         string    `json:"user_id" bson:"user_id" validate:"required,min=1,max=100"`
	TourID         string    `json:"tour_id" bson:"tour_id" validate:"required,mongodb"`
	NumberOfGuests int       `json:"number_of_guests" bson:"number_of_guests" validate:"required,min=1"`
	TotalPrice     float64   `json:"total_price" bson:"total_price" validate:"min=0"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// CreateBookingRequest is the caller-supplied part of a booking. Price and
// status are derived during admission.
type CreateBookingRequest struct {
	UserID         string `json:"user_id" validate:"required,min=1,max=100"`
	TourID         string `json:"tour_id" validate:"required,mongodb"`
	NumberOfGuests int    `json:"number_of_guests" validate:"required,min=1"`
}
