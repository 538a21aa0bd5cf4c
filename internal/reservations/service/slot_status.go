package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	reserrors "yoyaku/internal/reservations/errors"
	"yoyaku/internal/reservations/repository"
	"yoyaku/internal/reservations/validator"
	"yoyaku/pkg/auth"
	"yoyaku/pkg/config"
	apperrors "yoyaku/pkg/errors"
	"yoyaku/pkg/model"
)

const timeLayout = "15:04"

// Occupancy levels shown on the availability grid.
const (
	GridAvailable   = "available"
	GridPartial     = "partial"
	GridFull        = "full"
	GridUnavailable = "unavailable"
)

// SlotAvailability is one grid cell: the manual override merged with the
// live booking count for that slot.
type SlotAvailability struct {
	Time      string `json:"time"`
	State     string `json:"state"`
	Confirmed int64  `json:"confirmed"`
	Capacity  int    `json:"capacity"`
}

type SlotStatusService interface {
	Get(ctx context.Context, key model.SlotKey) (model.SlotState, error)
	// Advance cycles the slot override to its next state. Admin only.
	Advance(ctx context.Context, key model.SlotKey, token string) (model.SlotState, error)
	// Availability renders the day grid between opening and closing time.
	Availability(ctx context.Context, date string) ([]*SlotAvailability, error)
	// Hours returns the effective booking window, stored or default.
	Hours(ctx context.Context) (*model.BusinessHours, error)
	// UpdateHours persists a new booking window. Admin only.
	UpdateHours(ctx context.Context, opening, closing, token string) (*model.BusinessHours, error)
}

type slotStatusService struct {
	slots     repository.SlotStatusRepository
	bookings  repository.BookingRepository
	hours     repository.BusinessHoursRepository
	validator *validator.BookingValidator
	verifier  auth.AdminVerifier
	cfg       *config.Config
}

func NewSlotStatusService(
	slots repository.SlotStatusRepository,
	bookings repository.BookingRepository,
	hours repository.BusinessHoursRepository,
	bookingValidator *validator.BookingValidator,
	verifier auth.AdminVerifier,
	cfg *config.Config,
) SlotStatusService {
	return &slotStatusService{
		slots:     slots,
		bookings:  bookings,
		hours:     hours,
		validator: bookingValidator,
		verifier:  verifier,
		cfg:       cfg,
	}
}

func (s *slotStatusService) Get(ctx context.Context, key model.SlotKey) (model.SlotState, error) {
	if err := s.validateKey(key); err != nil {
		return "", err
	}

	state, err := s.slots.Get(ctx, key)
	if err != nil {
		s.cfg.Log.Error("Failed to read slot status", "slot", key.String(), "error", err)
		return "", apperrors.Internal("Failed to read slot status", err)
	}

	return state, nil
}

func (s *slotStatusService) Advance(ctx context.Context, key model.SlotKey, token string) (model.SlotState, error) {
	actor, err := s.verifier.Verify(token)
	if err != nil {
		return "", err
	}

	if err := s.validateKey(key); err != nil {
		return "", err
	}

	current, err := s.slots.Get(ctx, key)
	if err != nil {
		s.cfg.Log.Error("Failed to read slot status", "slot", key.String(), "error", err)
		return "", apperrors.Internal("Failed to read slot status", err)
	}

	next := current.Next()
	if err := s.slots.Upsert(ctx, key, next, actor.ID); err != nil {
		s.cfg.Log.Error("Failed to update slot status", "slot", key.String(), "error", err)
		return "", apperrors.Internal("Failed to update slot status", err)
	}

	s.cfg.Log.Info("Slot status advanced",
		"slot", key.String(),
		"from", string(current),
		"to", string(next),
		"updated_by", actor.ID,
	)

	return next, nil
}

func (s *slotStatusService) Availability(ctx context.Context, date string) ([]*SlotAvailability, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	hours := s.effectiveHours(ctx)
	times, err := slotTimes(hours.OpeningTime, hours.ClosingTime)
	if err != nil {
		return nil, apperrors.Internal("Invalid business hours configuration", err)
	}

	counts, err := s.bookings.CountsByRange(ctx, date, date)
	if err != nil {
		s.cfg.Log.Error("Failed to aggregate slot counts", "date", date, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}
	countByTime := make(map[string]int64, len(counts))
	for _, c := range counts {
		countByTime[c.Time] = c.Count
	}

	overrides, err := s.slots.ListByDate(ctx, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list slot overrides", "date", date, "error", err)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}

	grid := make([]*SlotAvailability, 0, len(times))
	for _, t := range times {
		grid = append(grid, &SlotAvailability{
			Time:      t,
			State:     deriveState(overrides[t], countByTime[t], s.cfg.SlotCapacity),
			Confirmed: countByTime[t],
			Capacity:  s.cfg.SlotCapacity,
		})
	}

	return grid, nil
}

func (s *slotStatusService) Hours(ctx context.Context) (*model.BusinessHours, error) {
	return s.effectiveHours(ctx), nil
}

func (s *slotStatusService) UpdateHours(ctx context.Context, opening, closing, token string) (*model.BusinessHours, error) {
	actor, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	if _, err := slotTimes(opening, closing); err != nil {
		return nil, apperrors.Validation("Invalid business hours", map[string]any{
			"hours": err.Error(),
		})
	}

	hours := &model.BusinessHours{
		OpeningTime: opening,
		ClosingTime: closing,
		UpdatedBy:   actor.ID,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.hours.Upsert(ctx, hours); err != nil {
		s.cfg.Log.Error("Failed to update business hours", "error", err)
		return nil, apperrors.Internal("Failed to update business hours", err)
	}

	s.cfg.Log.Info("Business hours updated",
		"opening_time", opening,
		"closing_time", closing,
		"updated_by", actor.ID,
	)

	return hours, nil
}

// effectiveHours resolves the booking window: the stored override when one
// exists, the configured defaults otherwise. A read failure falls back to
// the defaults so the grid keeps rendering.
func (s *slotStatusService) effectiveHours(ctx context.Context) *model.BusinessHours {
	hours, err := s.hours.Get(ctx)
	if err == nil {
		return hours
	}
	if !errors.Is(err, reserrors.ErrNotFound) {
		s.cfg.Log.Warn("Failed to read business hours, using defaults", "error", err)
	}
	return &model.BusinessHours{
		OpeningTime: s.cfg.OpeningTime,
		ClosingTime: s.cfg.ClosingTime,
	}
}

func (s *slotStatusService) validateKey(key model.SlotKey) error {
	err := s.validator.ValidateSlotKey(key)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]any, len(verrs))
		for _, ve := range verrs {
			details[ve.Field] = ve.Message
		}
		return apperrors.Validation("Invalid slot", details)
	}
	return apperrors.Internal("Validation failed", err)
}

// deriveState merges the manual override with the live count. A manual
// closure always wins; otherwise occupancy decides.
func deriveState(override model.SlotState, confirmed int64, capacity int) string {
	if override.Blocks() {
		return GridUnavailable
	}
	switch {
	case confirmed >= int64(capacity):
		return GridFull
	case confirmed > 0 || override == model.SlotPartial:
		return GridPartial
	default:
		return GridAvailable
	}
}

// slotTimes expands business hours into slot start times, closing exclusive.
func slotTimes(opening, closing string) ([]string, error) {
	start, err := time.Parse(timeLayout, opening)
	if err != nil {
		return nil, fmt.Errorf("bad opening time %q: %w", opening, err)
	}
	end, err := time.Parse(timeLayout, closing)
	if err != nil {
		return nil, fmt.Errorf("bad closing time %q: %w", closing, err)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("opening time %q is not before closing time %q", opening, closing)
	}

	var times []string
	step := config.SlotGranularityMinutes * time.Minute
	for t := start; t.Before(end); t = t.Add(step) {
		times = append(times, t.Format(timeLayout))
	}
	return times, nil
}
