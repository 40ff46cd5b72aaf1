package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionStatusPending   = "pending"
	SessionStatusConfirmed = "confirmed"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
	SessionStatusNoShow    = "no-show"
)

const (
	SessionTypeOneOnOne     = "one-on-one"
	SessionTypeGroup        = "group"
	SessionTypeExamPrep     = "exam-prep"
	SessionTypeHomeworkHelp = "homework-help"
)

const (
	MinSessionDurationMinutes = 15
	MaxSessionDurationMinutes = 480
	DefaultCurrency           = "USD"
)

// ActiveSessionStatuses are the statuses that occupy a participant's calendar.
var ActiveSessionStatuses = []string{SessionStatusPending, SessionStatusConfirmed}

type Session struct {
	ID              uuid.UUID `json:"id"`
	StudentID       uuid.UUID `json:"student_id"`
	TutorID         uuid.UUID `json:"tutor_id"`
	Subject         string    `json:"subject"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	SessionType     string    `json:"session_type"`
	Price           float64   `json:"price"`
	Currency        string    `json:"currency"`
	Notes           *string   `json:"notes,omitempty"`
	MeetingLink     *string   `json:"meeting_link,omitempty"`
	RecordingURL    *string   `json:"recording_url,omitempty"`
	Rating          *int      `json:"rating,omitempty"`
	Review          *string   `json:"review,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SessionEnd derives the exclusive end of a session interval.
func SessionEnd(start time.Time, durationMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

func IsActiveStatus(status string) bool {
	return status == SessionStatusPending || status == SessionStatusConfirmed
}

func IsValidSessionStatus(status string) bool {
	switch status {
	case SessionStatusPending, SessionStatusConfirmed, SessionStatusCompleted,
		SessionStatusCancelled, SessionStatusNoShow:
		return true
	default:
		return false
	}
}

func IsValidSessionType(sessionType string) bool {
	switch sessionType {
	case SessionTypeOneOnOne, SessionTypeGroup, SessionTypeExamPrep, SessionTypeHomeworkHelp:
		return true
	default:
		return false
	}
}

type SessionStats struct {
	Total                int     `json:"total"`
	Pending              int     `json:"pending"`
	Confirmed            int     `json:"confirmed"`
	Completed            int     `json:"completed"`
	Cancelled            int     `json:"cancelled"`
	NoShow               int     `json:"no_show"`
	Upcoming             int     `json:"upcoming"`
	TotalDurationMinutes int     `json:"total_duration_minutes"`
	TotalPrice           float64 `json:"total_price"`
}
