// Package admission gatekeeps every mutating call: per-class rate limits,
// an any-action anomaly guard, a cumulative per-client booking quota, and
// input threat screening. No check here mutates booking data.
package admission

import (
	"context"
	"fmt"
	"time"

	apperrors "yoyaku/pkg/errors"
	"yoyaku/pkg/logger"
)

// ActionClass names one windowed limit bucket.
type ActionClass string

const (
	ActionCreateBooking ActionClass = "booking_create"
	ActionDeleteBooking ActionClass = "booking_delete"
	ActionBulkDelete    ActionClass = "booking_bulk_delete"
)

type classLimit struct {
	limit  int
	window time.Duration
}

// BookingCounter answers how many confirmed bookings a fingerprint currently
// holds. The booking repository satisfies it.
type BookingCounter interface {
	CountByFingerprint(ctx context.Context, fingerprint string) (int64, error)
}

type Controller struct {
	rates    RateStore
	anomaly  *AnomalyGuard
	screener *Screener
	counter  BookingCounter
	limits   map[ActionClass]classLimit
	quota    int
	log      *logger.Logger
}

type Limits struct {
	CreateLimit      int
	CreateWindow     time.Duration
	DeleteLimit      int
	DeleteWindow     time.Duration
	BulkDeleteLimit  int
	BulkDeleteWindow time.Duration
	AnomalyLimit     int
	ClientQuota      int
}

func NewController(rates RateStore, counter BookingCounter, limits Limits, log *logger.Logger) *Controller {
	return &Controller{
		rates:    rates,
		anomaly:  NewAnomalyGuard(limits.AnomalyLimit),
		screener: NewScreener(log),
		counter:  counter,
		limits: map[ActionClass]classLimit{
			ActionCreateBooking: {limit: limits.CreateLimit, window: limits.CreateWindow},
			ActionDeleteBooking: {limit: limits.DeleteLimit, window: limits.DeleteWindow},
			ActionBulkDelete:    {limit: limits.BulkDeleteLimit, window: limits.BulkDeleteWindow},
		},
		quota: limits.ClientQuota,
		log:   log,
	}
}

// CheckRate applies the sliding window for the action class and the
// independent anomaly guard. Either can trip on its own.
func (c *Controller) CheckRate(ctx context.Context, fingerprint string, class ActionClass) error {
	if fingerprint == "" {
		return apperrors.InvalidInput("client fingerprint is required")
	}

	if !c.anomaly.Allow(fingerprint) {
		c.log.Security("anomalous_activity",
			"fingerprint", fingerprint,
			"action", string(class),
		)
		return apperrors.QuotaExceeded("anomalous activity pattern detected")
	}

	cl, ok := c.limits[class]
	if !ok {
		return apperrors.Internal(fmt.Sprintf("unknown action class %q", class), nil)
	}

	key := fmt.Sprintf("%s:%s", class, fingerprint)
	allowed, err := c.rates.Allow(ctx, key, cl.limit, cl.window)
	if err != nil {
		return apperrors.Internal("rate limit check failed", err)
	}
	if !allowed {
		c.log.Security("rate_limit_exceeded",
			"fingerprint", fingerprint,
			"action", string(class),
			"limit", cl.limit,
			"window", cl.window.String(),
		)
		return apperrors.QuotaExceeded("action rate limit reached, try again later")
	}

	return nil
}

// CheckCumulativeQuota bounds how many confirmed seats one client may hold at
// once. Unlike the rate windows this counts live bookings, so cancelled seats
// free quota again.
func (c *Controller) CheckCumulativeQuota(ctx context.Context, fingerprint string) error {
	if fingerprint == "" {
		return apperrors.InvalidInput("client fingerprint is required")
	}

	held, err := c.counter.CountByFingerprint(ctx, fingerprint)
	if err != nil {
		return apperrors.Internal("quota check failed", err)
	}
	if held >= int64(c.quota) {
		c.log.Security("quota_exceeded",
			"fingerprint", fingerprint,
			"held", held,
			"quota", c.quota,
		)
		return apperrors.QuotaExceeded(fmt.Sprintf("client already holds %d bookings (limit %d)", held, c.quota))
	}

	return nil
}

// ScreenInput cleans the mutable request fields or rejects them.
func (c *Controller) ScreenInput(fingerprint string, fields []ScreenField) (map[string]string, error) {
	return c.screener.ScreenFields(fingerprint, fields)
}

// Stop terminates background sweepers.
func (c *Controller) Stop() {
	c.rates.Stop()
	c.anomaly.Stop()
}
