package validator

import (
	"errors"
	"strings"
	"testing"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"
)

func validTour() *model.Tour {
	return &model.Tour{
		Name:           "Fjord Hike",
		Description:    "Three days along the Sognefjord",
		Price:          450,
		Destination:    "Norway",
		DurationDays:   3,
		AvailableSlots: 12,
	}
}

func TestTourValidator_Valid(t *testing.T) {
	v := NewTourValidator(logger.Discard())
	if err := v.Validate(validTour()); err != nil {
		t.Fatalf("expected valid tour, got %v", err)
	}

	soldOut := validTour()
	soldOut.AvailableSlots = 0
	if err := v.Validate(soldOut); err != nil {
		t.Errorf("zero slots is a valid sold-out tour, got %v", err)
	}
}

func TestTourValidator_Invalid(t *testing.T) {
	v := NewTourValidator(logger.Discard())

	tests := []struct {
		name   string
		mutate func(*model.Tour)
		field  string
	}{
		{"short name", func(tr *model.Tour) { tr.Name = "A" }, "Name"},
		{"negative price", func(tr *model.Tour) { tr.Price = -1 }, "Price"},
		{"zero duration", func(tr *model.Tour) { tr.DurationDays = 0 }, "DurationDays"},
		{"negative slots", func(tr *model.Tour) { tr.AvailableSlots = -2 }, "AvailableSlots"},
		{"missing destination", func(tr *model.Tour) { tr.Destination = "" }, "Destination"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tour := validTour()
			tt.mutate(tour)

			err := v.Validate(tour)
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if !strings.Contains(verrs.Error(), tt.field) {
				t.Errorf("error %q does not mention %s", verrs.Error(), tt.field)
			}
		})
	}
}
