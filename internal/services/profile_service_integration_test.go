package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/saeid-a/TutorAppBack/internal/models"
	"github.com/saeid-a/TutorAppBack/internal/repository"
)

func TestProfileServiceRegisterUpdateAndRecommend(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	users := repository.NewUserRepository(pool)
	profiles := repository.NewUserProfileRepository(pool)
	tutors := repository.NewTutorProfileRepository(pool)
	accounts := NewAccountService(NewPgAccountTransactor(pool), users)
	profileService := NewProfileService(NewPgProfileTransactor(pool), users, profiles)

	student, err := accounts.Register(ctx, RegisterInput{
		Name:     "Profile Student",
		Email:    fmt.Sprintf("profile-student-%d@example.com", time.Now().UnixNano()),
		Password: "password123",
		Role:     models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	tutorID := createTestAccount(t, ctx, pool, models.RoleTutor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, student.ID, tutorID) })

	_, stored, err := profileService.GetProfile(ctx, student.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if stored.Timezone != "UTC" || stored.Preferences.Currency != "USD" {
		t.Fatalf("expected column defaults, got %+v", stored)
	}

	subject := fmt.Sprintf("subject-%d", time.Now().UnixNano())
	subjects := []string{subject}
	maxPrice := 50.0
	name := "Renamed Student"
	user, updated, err := profileService.UpdateProfile(ctx, student.ID, ProfileUpdate{
		Name: &name,
		Profile: repository.UpdateUserProfileInput{
			PreferredSubjects: &subjects,
			MaxPrice:          &maxPrice,
		},
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.Name != name || updated.Preferences.Subjects == nil || (*updated.Preferences.Subjects)[0] != subject {
		t.Fatalf("unexpected update result: %+v %+v", user, updated)
	}

	rate := 40.0
	if _, err := tutors.UpdatePartial(ctx, tutorID, repository.UpdateTutorProfileInput{
		Subjects:   &subjects,
		HourlyRate: &rate,
	}); err != nil {
		t.Fatalf("UpdatePartial tutor: %v", err)
	}

	matchmaking := NewMatchmakingService(tutors, profiles)
	matched, err := matchmaking.RecommendTutors(ctx, student.ID, MatchCriteria{}, 0)
	if err != nil {
		t.Fatalf("RecommendTutors: %v", err)
	}
	score := -1
	for _, candidate := range matched {
		if candidate.UserID == tutorID {
			score = candidate.MatchScore
		}
	}
	if score != subjectMatchPoints+affordablePoints {
		t.Fatalf("expected stored preferences to score %d, got %d", subjectMatchPoints+affordablePoints, score)
	}
}
