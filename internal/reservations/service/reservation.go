package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yoyaku/internal/reservations/admission"
	reserrors "yoyaku/internal/reservations/errors"
	"yoyaku/internal/reservations/notify"
	"yoyaku/internal/reservations/repository"
	"yoyaku/internal/reservations/validator"
	"yoyaku/pkg/auth"
	"yoyaku/pkg/config"
	apperrors "yoyaku/pkg/errors"
	"yoyaku/pkg/model"
)

const dateLayout = "2006-01-02"

// AdmissionGate is the slice of the admission controller the reservation
// flow needs. admission.Controller satisfies it.
type AdmissionGate interface {
	CheckRate(ctx context.Context, fingerprint string, class admission.ActionClass) error
	CheckCumulativeQuota(ctx context.Context, fingerprint string) error
	ScreenInput(fingerprint string, fields []admission.ScreenField) (map[string]string, error)
}

type ReserveRequest struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	CustomerName string `json:"customer_name"`
	Fingerprint  string `json:"-"`
}

type ReservationService interface {
	// Reserve runs the full admission pipeline and commits the booking.
	// Gate order is fixed: rate, cumulative quota, input screening,
	// validation, slot override veto, then the atomic reservation.
	Reserve(ctx context.Context, req *ReserveRequest) (*model.Booking, error)
	GetByDate(ctx context.Context, date string) ([]*model.Booking, error)
	GetByRange(ctx context.Context, startDate, endDate string) ([]*model.Booking, error)
	Stats(ctx context.Context, startDate, endDate string) ([]*model.SlotCount, error)
	Delete(ctx context.Context, id, fingerprint, token string) error
	// DeleteMany removes a batch of bookings in one admin action. Ids that
	// cannot be deleted are reported back rather than aborting the batch.
	DeleteMany(ctx context.Context, ids []string, token string) (*BulkDeleteResult, error)
}

// BulkDeleteResult summarizes a batch removal: how many bookings were
// deleted and which ids could not be.
type BulkDeleteResult struct {
	Deleted int      `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
}

type reservationService struct {
	repo      repository.BookingRepository
	slots     repository.SlotStatusRepository
	gate      AdmissionGate
	validator *validator.BookingValidator
	verifier  auth.AdminVerifier
	notifier  notify.Notifier
	cfg       *config.Config
}

func NewReservationService(
	repo repository.BookingRepository,
	slots repository.SlotStatusRepository,
	gate AdmissionGate,
	bookingValidator *validator.BookingValidator,
	verifier auth.AdminVerifier,
	notifier notify.Notifier,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		slots:     slots,
		gate:      gate,
		validator: bookingValidator,
		verifier:  verifier,
		notifier:  notifier,
		cfg:       cfg,
	}
}

func (s *reservationService) Reserve(ctx context.Context, req *ReserveRequest) (*model.Booking, error) {
	// The stored fingerprint is truncated, so the quota lookup must use
	// the truncated form too or it never matches prior bookings.
	storedFingerprint := truncateFingerprint(req.Fingerprint)

	if err := s.gate.CheckRate(ctx, req.Fingerprint, admission.ActionCreateBooking); err != nil {
		return nil, err
	}

	if err := s.gate.CheckCumulativeQuota(ctx, storedFingerprint); err != nil {
		return nil, err
	}

	clean, err := s.gate.ScreenInput(req.Fingerprint, []admission.ScreenField{
		{Name: "date", Value: req.Date, MaxLength: admission.MaxDateLength},
		{Name: "time", Value: req.Time, MaxLength: admission.MaxTimeLength},
		{Name: "customer_name", Value: req.CustomerName, MaxLength: admission.MaxNameLength},
	})
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		Date:              clean["date"],
		Time:              clean["time"],
		CustomerName:      clean["customer_name"],
		Status:            model.StatusConfirmed,
		ClientFingerprint: storedFingerprint,
	}

	if err := s.validate(booking); err != nil {
		return nil, err
	}

	state, err := s.slots.Get(ctx, booking.SlotKey())
	if err != nil {
		s.cfg.Log.Error("Failed to read slot override", "slot", booking.SlotKey().String(), "error", err)
		return nil, apperrors.Internal("Failed to check slot availability", err)
	}
	if state.Blocks() {
		return nil, apperrors.SlotUnavailable("This slot has been closed by the administrator")
	}

	if err := s.repo.ReserveAtomically(ctx, booking, s.cfg.SlotCapacity); err != nil {
		switch {
		case errors.Is(err, reserrors.ErrCapacityFull):
			return nil, apperrors.CapacityFull("All seats for this slot are taken")
		case errors.Is(err, reserrors.ErrDuplicateBooking):
			return nil, apperrors.DuplicateBooking("An identical booking already exists for this slot")
		case errors.Is(err, reserrors.ErrConflict):
			s.cfg.Log.Error("Reservation conflicted past retry limit",
				"slot", booking.SlotKey().String(),
				"error", err,
			)
			return nil, apperrors.StoreConflict("Reservation conflicted, please try again", err)
		default:
			s.cfg.Log.Error("Failed to create booking", "error", err)
			return nil, apperrors.Internal("Failed to create booking", err)
		}
	}

	s.cfg.Log.Security("booking_created",
		"booking_id", booking.ID,
		"slot", booking.SlotKey().String(),
		"fingerprint", booking.ClientFingerprint,
	)
	s.notifier.BookingCreated(ctx, booking)

	return booking, nil
}

func (s *reservationService) GetByDate(ctx context.Context, date string) ([]*model.Booking, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	bookings, err := s.repo.FindByDate(ctx, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "date", date, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return s.dropMalformed(bookings), nil
}

func (s *reservationService) GetByRange(ctx context.Context, startDate, endDate string) ([]*model.Booking, error) {
	if err := validateRange(startDate, endDate); err != nil {
		return nil, err
	}

	bookings, err := s.repo.FindByRange(ctx, startDate, endDate)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings",
			"start_date", startDate,
			"end_date", endDate,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return s.dropMalformed(bookings), nil
}

func (s *reservationService) Stats(ctx context.Context, startDate, endDate string) ([]*model.SlotCount, error) {
	if err := validateRange(startDate, endDate); err != nil {
		return nil, err
	}

	counts, err := s.repo.CountsByRange(ctx, startDate, endDate)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate slot counts", "error", err)
		return nil, apperrors.Internal("Failed to compute booking statistics", err)
	}

	return counts, nil
}

func (s *reservationService) Delete(ctx context.Context, id, fingerprint, token string) error {
	actor, err := s.verifier.Verify(token)
	if err != nil {
		return err
	}

	if fingerprint == "" {
		fingerprint = actor.ID
	}
	if err := s.gate.CheckRate(ctx, fingerprint, admission.ActionDeleteBooking); err != nil {
		return err
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapLookupError(err, id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		// A concurrent delete between the lookup and this call lands here.
		return mapLookupError(err, id)
	}

	s.cfg.Log.Security("booking_deleted",
		"booking_id", id,
		"slot", booking.SlotKey().String(),
		"deleted_by", actor.ID,
	)
	s.notifier.BookingDeleted(ctx, booking)

	return nil
}

func (s *reservationService) DeleteMany(ctx context.Context, ids []string, token string) (*BulkDeleteResult, error) {
	actor, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, apperrors.InvalidInput("no bookings selected for deletion")
	}
	if len(ids) > s.cfg.BulkDeleteMax {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d bookings may be deleted at once", s.cfg.BulkDeleteMax))
	}

	// The batch counts as one admin action against the bulk window, keyed
	// by the acting admin rather than a client fingerprint.
	if err := s.gate.CheckRate(ctx, actor.ID, admission.ActionBulkDelete); err != nil {
		return nil, err
	}

	result := &BulkDeleteResult{}
	for _, id := range ids {
		booking, err := s.repo.FindByID(ctx, id)
		if err != nil {
			s.cfg.Log.Warn("Skipping undeletable booking in batch", "booking_id", id, "error", err)
			result.Failed = append(result.Failed, id)
			continue
		}

		if err := s.repo.Delete(ctx, id); err != nil {
			s.cfg.Log.Warn("Skipping undeletable booking in batch", "booking_id", id, "error", err)
			result.Failed = append(result.Failed, id)
			continue
		}

		result.Deleted++
		s.notifier.BookingDeleted(ctx, booking)
	}

	s.cfg.Log.Security("bulk_booking_deletion",
		"deleted", result.Deleted,
		"failed", len(result.Failed),
		"deleted_by", actor.ID,
	)

	return result, nil
}

func (s *reservationService) validate(booking *model.Booking) error {
	err := s.validator.Validate(booking)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]any, len(verrs))
		for _, ve := range verrs {
			details[ve.Field] = ve.Message
		}
		return apperrors.Validation("Booking failed validation", details)
	}
	return apperrors.Internal("Validation failed", err)
}

// dropMalformed filters stored records that lost required fields, so one
// corrupted document never breaks a listing.
func (s *reservationService) dropMalformed(bookings []*model.Booking) []*model.Booking {
	valid := bookings[:0]
	for _, b := range bookings {
		if !b.Valid() {
			s.cfg.Log.Warn("Dropping malformed booking record", "booking_id", b.ID)
			continue
		}
		valid = append(valid, b)
	}
	return valid
}

func mapLookupError(err error, id string) error {
	switch {
	case errors.Is(err, reserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, reserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal("Failed to delete booking", err)
	}
}

func truncateFingerprint(fingerprint string) string {
	if len(fingerprint) > config.FingerprintStoredLen {
		return fingerprint[:config.FingerprintStoredLen]
	}
	return fingerprint
}

func validateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return apperrors.Validation("Date must be in YYYY-MM-DD format", map[string]any{
			"date": date,
		})
	}
	return nil
}

func validateRange(startDate, endDate string) error {
	if err := validateDate(startDate); err != nil {
		return err
	}
	if err := validateDate(endDate); err != nil {
		return err
	}
	if startDate > endDate {
		return apperrors.Validation("Start date must not be after end date", map[string]any{
			"start_date": startDate,
			"end_date":   endDate,
		})
	}
	return nil
}
