package models

import (
	"time"

	"github.com/google/uuid"
)

// StudyPreferences drive tutor recommendations when the caller gives no criteria.
type StudyPreferences struct {
	Subjects  *[]string `json:"subjects"`
	MaxPrice  *float64  `json:"max_price"`
	Currency  string    `json:"currency"`
	Languages *[]string `json:"languages"`
}

type UserProfile struct {
	ID          int64            `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	Bio         *string          `json:"bio"`
	Phone       *string          `json:"phone"`
	DateOfBirth *time.Time       `json:"date_of_birth"`
	Location    *string          `json:"location"`
	Timezone    string           `json:"timezone"`
	Skills      *[]string        `json:"skills"`
	Preferences StudyPreferences `json:"preferences"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
