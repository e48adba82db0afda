package model

import "time"

type Tour struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name           string    `json:"name" bson:"name" validate:"required,min=2,max=200"`
	Description    string    `json:"description" bson:"description" validate:"omitempty,max=2000"`
	Price          float64   `json:"price" bson:"price" validate:"min=0"`
	Destination    string    `json:"destination" bson:"destination" validate:"required,min=2,max=100"`
	DurationDays   int       `json:"duration_days" bson:"duration_days" validate:"required,min=1,max=365"`
	AvailableSlots int       `json:"available_slots" bson:"available_slots" validate:"min=0"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type TourUpdate struct {
	Name           string   `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description    *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price          *float64 `json:"price,omitempty" validate:"omitempty,min=0"`
	Destination    string   `json:"destination,omitempty" validate:"omitempty,min=2,max=100"`
	DurationDays   *int     `json:"duration_days,omitempty" validate:"omitempty,min=1,max=365"`
	AvailableSlots *int     `json:"available_slots,omitempty" validate:"omitempty,min=0"`
}
