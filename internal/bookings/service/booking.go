package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	bookingserrors "tourbook/internal/bookings/errors"
	"tourbook/internal/bookings/repository"
	"tourbook/internal/bookings/validator"
	tourserrors "tourbook/internal/tours/errors"
	"tourbook/pkg/client"
	"tourbook/pkg/config"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/jobs"
	"tourbook/pkg/lock"
	"tourbook/pkg/metrics"
	"tourbook/pkg/model"
)

const (
	rejectedInProgress = "in_progress"
	rejectedCapacity   = "capacity"

	// releaseTimeout bounds lock release and outbox writes that run after the
	// request context may already be cancelled.
	releaseTimeout = 2 * time.Second
)

type BookingService interface {
	Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
}

// TourReader is the uncached, authoritative tour lookup.
type TourReader interface {
	FindByID(ctx context.Context, id string) (*model.Tour, error)
}

type UserDirectory interface {
	GetEmail(ctx context.Context, userID string) (string, error)
}

type Dependencies struct {
	Bookings  repository.BookingRepository
	Outbox    repository.OutboxRepository
	Tours     TourReader
	Users     UserDirectory
	Locker    lock.Locker
	Queue     jobs.Queue
	Validator *validator.BookingValidator
}

type bookingService struct {
	repo      repository.BookingRepository
	outbox    repository.OutboxRepository
	tours     TourReader
	users     UserDirectory
	locker    lock.Locker
	queue     jobs.Queue
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(deps Dependencies, cfg *config.Config) BookingService {
	return &bookingService{
		repo:      deps.Bookings,
		outbox:    deps.Outbox,
		tours:     deps.Tours,
		users:     deps.Users,
		locker:    deps.Locker,
		queue:     deps.Queue,
		validator: deps.Validator,
		cfg:       cfg,
	}
}

// Create admits a booking for one traveler and tour.
//
// The per-(user, tour) lock is held from before the availability read until
// after the confirmation job is handed off, and is released on every return
// path. Contention fails fast with BOOKING_IN_PROGRESS; nothing here retries.
// A failed enqueue does not fail the request: the job is parked in the outbox
// for the relay to republish.
func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.TourID = strings.TrimSpace(req.TourID)

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed",
			"user_id", req.UserID,
			"tour_id", req.TourID,
			"error", err,
		)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	key := lock.BookingKey(req.UserID, req.TourID)
	token, err := s.locker.Acquire(ctx, key, s.cfg.BookingLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			s.cfg.Metrics.BookingsRejected.WithLabelValues(rejectedInProgress).Inc()
			s.cfg.Log.Info("Booking rejected, another request holds the lock",
				"user_id", req.UserID,
				"tour_id", req.TourID,
			)
			return nil, apperrors.BookingInProgress("Another booking for this tour is already in progress, retry shortly")
		}
		s.cfg.Log.Error("Failed to acquire booking lock", "key", key, "error", err)
		return nil, apperrors.UnavailableWithCause("Lock store", err)
	}
	defer s.release(ctx, key, token)

	tour, err := s.tours.FindByID(ctx, req.TourID)
	if err != nil {
		switch {
		case errors.Is(err, tourserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Tour", req.TourID)
		case errors.Is(err, tourserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid tour ID format")
		}
		s.cfg.Log.Error("Failed to read tour availability", "tour_id", req.TourID, "error", err)
		return nil, apperrors.UnavailableWithCause("Tour store", err)
	}

	if req.NumberOfGuests > tour.AvailableSlots {
		s.cfg.Metrics.BookingsRejected.WithLabelValues(rejectedCapacity).Inc()
		s.cfg.Log.Info("Booking rejected, not enough slots",
			"tour_id", tour.ID,
			"requested", req.NumberOfGuests,
			"available", tour.AvailableSlots,
		)
		return nil, apperrors.InsufficientCapacity(req.NumberOfGuests, tour.AvailableSlots)
	}

	email, err := s.users.GetEmail(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, client.ErrUserNotFound) {
			return nil, apperrors.NotFoundWithID("User", req.UserID)
		}
		s.cfg.Log.Error("Failed to look up user contact", "user_id", req.UserID, "error", err)
		return nil, apperrors.UnavailableWithCause("Users service", err)
	}

	booking := &model.Booking{
		UserID:         req.UserID,
		TourID:         tour.ID,
		NumberOfGuests: req.NumberOfGuests,
		TotalPrice:     tour.Price * float64(req.NumberOfGuests),
		Status:         model.BookingStatusPending,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to persist booking",
			"user_id", booking.UserID,
			"tour_id", booking.TourID,
			"error", err,
		)
		return nil, apperrors.UnavailableWithCause("Booking store", err)
	}
	s.cfg.Metrics.BookingsCreated.Inc()

	s.enqueueConfirmation(ctx, model.NewConfirmationJob(booking, tour, email))

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"user_id", booking.UserID,
		"tour_id", booking.TourID,
		"guests", booking.NumberOfGuests,
		"total_price", booking.TotalPrice,
	)
	return booking, nil
}

// release runs even when ctx is already cancelled, so it uses a detached
// context with its own deadline.
func (s *bookingService) release(ctx context.Context, key, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	released, err := s.locker.Release(ctx, key, token)
	switch {
	case err != nil:
		s.cfg.Log.Warn("Failed to release booking lock, it will expire on its own",
			"key", key,
			"ttl", s.cfg.BookingLockTTL,
			"error", err,
		)
	case !released:
		s.cfg.Log.Warn("Booking lock expired before release", "key", key, "ttl", s.cfg.BookingLockTTL)
	}
}

func (s *bookingService) enqueueConfirmation(ctx context.Context, job model.NotificationJob) {
	err := s.queue.Enqueue(ctx, job)
	if err == nil {
		s.cfg.Metrics.JobsEnqueued.WithLabelValues(metrics.ResultOK).Inc()
		return
	}

	s.cfg.Metrics.JobsEnqueued.WithLabelValues(metrics.ResultFailed).Inc()
	s.cfg.Log.Error("Failed to enqueue confirmation job, parking it in the outbox",
		"booking_id", job.BookingID,
		"error", err,
	)

	outboxCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.outbox.Add(outboxCtx, job); err != nil {
		s.cfg.Log.Error("Failed to store confirmation job in the outbox, notification will not be sent",
			"booking_id", job.BookingID,
			"user_id", job.UserID,
			"tour_id", job.TourID,
			"recipient_email", job.RecipientEmail,
			"tour_name", job.TourName,
			"job_kind", job.JobKind,
			"error", err,
		)
	}
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to get booking by ID", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		count             int64
		bookings          []*model.Booking
		errCount, errFind error
		wg                sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindAll(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all bookings",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}
