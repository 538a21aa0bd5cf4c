package model

import "time"

// BusinessHours is the admin-editable booking window. A single document
// holds it; when none exists the configured defaults apply.
type BusinessHours struct {
	ID          string    `json:"-" bson:"_id"`
	OpeningTime string    `json:"opening_time" bson:"opening_time"`
	ClosingTime string    `json:"closing_time" bson:"closing_time"`
	UpdatedBy   string    `json:"updated_by,omitempty" bson:"updated_by"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" bson:"updated_at"`
}
