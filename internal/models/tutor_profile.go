package models

import (
	"time"

	"github.com/google/uuid"
)

type TutorProfile struct {
	ID              int64     `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	FullName        *string   `json:"full_name"`
	Bio             *string   `json:"bio"`
	Subjects        *[]string `json:"subjects"`
	ExperienceYears *int      `json:"experience_years"`
	HourlyRate      *float64  `json:"hourly_rate"`
	Rating          *float64  `json:"rating"`
	TotalSessions   int       `json:"total_sessions"`
	IsVerified      bool      `json:"is_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TutorWithScore struct {
	TutorProfile
	MatchScore int `json:"match_score"`
}
