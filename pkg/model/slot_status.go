package model

import "time"

// SlotState is the administrator-set availability override for one slot,
// independent of how many bookings the slot actually holds.
type SlotState string

const (
	SlotAvailable   SlotState = "available"
	SlotPartial     SlotState = "partial"
	SlotUnavailable SlotState = "unavailable"
)

// Next returns the following state in the administrator cycle:
// available -> partial -> unavailable -> available.
func (s SlotState) Next() SlotState {
	switch s {
	case SlotAvailable:
		return SlotPartial
	case SlotPartial:
		return SlotUnavailable
	case SlotUnavailable:
		return SlotAvailable
	default:
		// Unknown stored values restart the cycle.
		return SlotPartial
	}
}

func (s SlotState) IsValid() bool {
	switch s {
	case SlotAvailable, SlotPartial, SlotUnavailable:
		return true
	}
	return false
}

// Blocks reports whether the override vetoes new bookings outright.
func (s SlotState) Blocks() bool {
	return s == SlotUnavailable
}

// SlotStatus is the persisted override record, keyed by "date_time".
// It is created lazily on the first administrator edit; absence means
// SlotAvailable.
type SlotStatus struct {
	ID        string    `json:"id" bson:"_id"`
	Date      string    `json:"date" bson:"date"`
	Time      string    `json:"time" bson:"time"`
	State     SlotState `json:"state" bson:"state"`
	UpdatedBy string    `json:"updated_by" bson:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
