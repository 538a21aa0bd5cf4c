package model

import (
	"fmt"
	"time"
)

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

type Booking struct {
	ID                string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Date              string    `json:"date" bson:"date" validate:"required,slot_date"`
	Time              string    `json:"time" bson:"time" validate:"required,slot_time"`
	CustomerName      string    `json:"customer_name" bson:"customer_name" validate:"required,min=1,max=50"`
	Status            string    `json:"status" bson:"status" validate:"required,oneof=confirmed cancelled"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	ClientFingerprint string    `json:"client_fingerprint,omitempty" bson:"client_fingerprint,omitempty" validate:"omitempty,max=64"`
}

// SlotKey identifies one bookable cell in the weekly grid. It is derived
// from a booking's date and time, never persisted on its own.
type SlotKey struct {
	Date string
	Time string
}

func NewSlotKey(date, time string) SlotKey {
	return SlotKey{Date: date, Time: time}
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s_%s", k.Date, k.Time)
}

func (b *Booking) SlotKey() SlotKey {
	return NewSlotKey(b.Date, b.Time)
}

// Valid reports whether a stored record carries every required field.
// Range queries drop (and log) records that fail this check instead of
// aborting the whole query.
func (b *Booking) Valid() bool {
	return b.Date != "" && b.Time != "" && b.CustomerName != ""
}

// SlotLock is the advisory-lock document that serializes reservations for
// one slot. The unique _id is the lock; ExpiresAt lets a TTL index reap
// locks whose holder died before releasing.
type SlotLock struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// SlotCount is one row of the admin occupancy report: how many confirmed
// bookings a slot holds.
type SlotCount struct {
	Date  string `json:"date" bson:"date"`
	Time  string `json:"time" bson:"time"`
	Count int64  `json:"count" bson:"count"`
}
