package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/TutorAppBack/internal/models"
)

const (
	subjectMatchPoints = 40
	topRatedPoints     = 20
	seasonedPoints     = 15
	verifiedPoints     = 10
	affordablePoints   = 15

	topRatedThreshold = 4.0
	seasonedYears     = 3
)

// subjectSynonyms folds common spellings onto one canonical subject key.
var subjectSynonyms = map[string]string{
	"maths":              "math",
	"mathematics":        "math",
	"cs":                 "computer_science",
	"programming":        "computer_science",
	"esl":                "english",
	"english_literature": "english",
	"chem":               "chemistry",
}

type TutorMatcher interface {
	ListAll(ctx context.Context) ([]models.TutorProfile, error)
}

// MatchCriteria describes what a student is looking for in a tutor.
type MatchCriteria struct {
	Subjects      []string
	MaxHourlyRate *float64
}

type MatchmakingService struct {
	tutorRepo   TutorMatcher
	preferences profileReader
}

// NewMatchmakingService builds the ranking service. preferences may be nil,
// in which case only explicit criteria are used.
func NewMatchmakingService(tutorRepo TutorMatcher, preferences profileReader) *MatchmakingService {
	return &MatchmakingService{tutorRepo: tutorRepo, preferences: preferences}
}

// RecommendTutors ranks tutors for a user. Criteria the caller leaves empty
// are filled from the user's stored study preferences.
func (s *MatchmakingService) RecommendTutors(
	ctx context.Context,
	userID uuid.UUID,
	criteria MatchCriteria,
	limit int,
) ([]models.TutorWithScore, error) {
	if s.preferences != nil && (len(criteria.Subjects) == 0 || criteria.MaxHourlyRate == nil) {
		profile, err := s.preferences.GetByUserID(ctx, userID)
		switch {
		case err == nil:
			criteria = withPreferences(criteria, profile.Preferences)
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, err
		}
	}
	return s.GetMatchedTutors(ctx, criteria, limit)
}

func (s *MatchmakingService) GetMatchedTutors(
	ctx context.Context,
	criteria MatchCriteria,
	limit int,
) ([]models.TutorWithScore, error) {
	tutors, err := s.tutorRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	wanted := subjectSet(criteria.Subjects)
	ranked := make([]models.TutorWithScore, len(tutors))
	for i := range tutors {
		ranked[i] = models.TutorWithScore{
			TutorProfile: tutors[i],
			MatchScore:   scoreTutor(wanted, criteria.MaxHourlyRate, &tutors[i]),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		return floatValue(ranked[i].Rating) > floatValue(ranked[j].Rating)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func withPreferences(criteria MatchCriteria, prefs models.StudyPreferences) MatchCriteria {
	if len(criteria.Subjects) == 0 && prefs.Subjects != nil {
		criteria.Subjects = *prefs.Subjects
	}
	if criteria.MaxHourlyRate == nil && prefs.MaxPrice != nil && *prefs.MaxPrice > 0 {
		budget := *prefs.MaxPrice
		criteria.MaxHourlyRate = &budget
	}
	return criteria
}

func scoreTutor(wanted map[string]struct{}, budget *float64, tutor *models.TutorProfile) int {
	score := 0
	if tutor.Subjects != nil {
		score += subjectMatchPoints * countShared(wanted, subjectSet(*tutor.Subjects))
	}
	if floatValue(tutor.Rating) > topRatedThreshold {
		score += topRatedPoints
	}
	if tutor.ExperienceYears != nil && *tutor.ExperienceYears > seasonedYears {
		score += seasonedPoints
	}
	if tutor.IsVerified {
		score += verifiedPoints
	}
	if limit := floatValue(budget); limit > 0 && floatValue(tutor.HourlyRate) <= limit {
		score += affordablePoints
	}
	return score
}

func countShared(a, b map[string]struct{}) int {
	n := 0
	for key := range a {
		if _, ok := b[key]; ok {
			n++
		}
	}
	return n
}

func subjectSet(subjects []string) map[string]struct{} {
	set := make(map[string]struct{}, len(subjects))
	for _, subject := range subjects {
		if key := canonicalSubject(subject); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

func canonicalSubject(subject string) string {
	key := strings.ToLower(strings.TrimSpace(subject))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if canonical, ok := subjectSynonyms[key]; ok {
		return canonical
	}
	return key
}

func floatValue(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
