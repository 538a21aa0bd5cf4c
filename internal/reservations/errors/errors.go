package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrCapacityFull = errors.New("slot capacity reached")

	ErrDuplicateBooking = errors.New("identical booking already confirmed for this slot")

	ErrConflict = errors.New("reservation conflicted with a concurrent attempt")

	ErrSlotLocked = errors.New("slot is locked by a concurrent reservation")
)
