package service

import (
	"context"
	"errors"
	tourserrors "tourbook/internal/tours/errors"
	"tourbook/internal/tours/repository"
	"tourbook/internal/tours/validator"
	"tourbook/pkg/config"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/model"
	"tourbook/pkg/sanitizer"
)

type TourService interface {
	Create(ctx context.Context, tour *model.Tour) error
	GetByID(ctx context.Context, id string) (*model.Tour, error)
	GetAll(ctx context.Context) ([]*model.Tour, error)
	Update(ctx context.Context, id string, updates *model.TourUpdate) (*model.Tour, error)
	Delete(ctx context.Context, id string) error
}

// Catalog is the cached read path plus its invalidation hooks.
type Catalog interface {
	Get(ctx context.Context, id string) (*model.Tour, error)
	GetAll(ctx context.Context) ([]*model.Tour, error)
	Invalidate(ctx context.Context, id string) error
	InvalidateAll(ctx context.Context) error
}

type tourService struct {
	repo      repository.TourRepository
	catalog   Catalog
	validator *validator.TourValidator
	cfg       *config.Config
}

func NewTourService(
	repo repository.TourRepository,
	catalog Catalog,
	validator *validator.TourValidator,
	cfg *config.Config,
) TourService {
	return &tourService{
		repo:      repo,
		catalog:   catalog,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *tourService) Create(ctx context.Context, tour *model.Tour) error {
	tour.ID = ""
	sanitize(tour)

	if err := s.validator.Validate(tour); err != nil {
		s.cfg.Log.Warn("Tour validation failed", "name", tour.Name, "error", err)
		return apperrors.Validation("Tour validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, tour); err != nil {
		s.cfg.Log.Error("Failed to create tour", "name", tour.Name, "error", err)
		return apperrors.UnavailableWithCause("Tour store", err)
	}

	if err := s.catalog.InvalidateAll(ctx); err != nil {
		return s.invalidationFailed(tour.ID, err)
	}

	s.cfg.Log.Info("Tour created successfully",
		"id", tour.ID,
		"name", tour.Name,
		"available_slots", tour.AvailableSlots,
	)
	return nil
}

func (s *tourService) GetByID(ctx context.Context, id string) (*model.Tour, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Tour ID cannot be empty")
	}

	tour, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, s.mapReadError(id, err)
	}
	return tour, nil
}

func (s *tourService) GetAll(ctx context.Context) ([]*model.Tour, error) {
	tours, err := s.catalog.GetAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list tours", "error", err)
		return nil, apperrors.UnavailableWithCause("Tour store", err)
	}
	return tours, nil
}

func (s *tourService) Update(ctx context.Context, id string, updates *model.TourUpdate) (*model.Tour, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Tour ID cannot be empty")
	}

	// Merge against the authoritative copy, never the cached one.
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapReadError(id, err)
	}

	merged := merge(existing, updates)
	sanitize(merged)
	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Tour validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Tour validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, tourserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Tour", id)
		}
		s.cfg.Log.Error("Failed to update tour", "id", id, "error", err)
		return nil, apperrors.UnavailableWithCause("Tour store", err)
	}

	if err := s.invalidate(ctx, id); err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Tour updated successfully", "id", id, "name", merged.Name)
	return merged, nil
}

func (s *tourService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Tour ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, tourserrors.ErrNotFound):
			return apperrors.NotFoundWithID("Tour", id)
		case errors.Is(err, tourserrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid tour ID format")
		}
		s.cfg.Log.Error("Failed to delete tour", "id", id, "error", err)
		return apperrors.UnavailableWithCause("Tour store", err)
	}

	if err := s.invalidate(ctx, id); err != nil {
		return err
	}

	s.cfg.Log.Info("Tour deleted successfully", "id", id)
	return nil
}

// invalidate removes both the tour entry and the list. Both deletes are
// attempted even if the first fails.
func (s *tourService) invalidate(ctx context.Context, id string) error {
	err := errors.Join(s.catalog.Invalidate(ctx, id), s.catalog.InvalidateAll(ctx))
	if err != nil {
		return s.invalidationFailed(id, err)
	}
	return nil
}

func (s *tourService) invalidationFailed(id string, err error) error {
	s.cfg.Log.Error("Tour written but cache invalidation failed", "id", id, "error", err)
	return apperrors.UnavailableWithCause("Tour cache", err).WithDetails(map[string]any{
		"id":      id,
		"written": true,
	})
}

func (s *tourService) mapReadError(id string, err error) error {
	switch {
	case errors.Is(err, tourserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Tour", id)
	case errors.Is(err, tourserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid tour ID format")
	}
	s.cfg.Log.Error("Failed to get tour by ID", "id", id, "error", err)
	return apperrors.UnavailableWithCause("Tour store", err)
}

func sanitize(tour *model.Tour) {
	tour.Name = sanitizer.NormalizeName(tour.Name)
	tour.Destination = sanitizer.NormalizeName(tour.Destination)
	tour.Description = sanitizer.NormalizeDescription(tour.Description)
}

func merge(existing *model.Tour, updates *model.TourUpdate) *model.Tour {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Price != nil {
		merged.Price = *updates.Price
	}
	if updates.Destination != "" {
		merged.Destination = updates.Destination
	}
	if updates.DurationDays != nil {
		merged.DurationDays = *updates.DurationDays
	}
	if updates.AvailableSlots != nil {
		merged.AvailableSlots = *updates.AvailableSlots
	}
	return &merged
}
