package identity

import (
	"context"
	"errors"
	"testing"

	"unigig/internal/database"
	"unigig/internal/notify"
)

type fakeNotifier struct {
	published []struct {
		UserID  uint
		Message any
	}
}

func (f *fakeNotifier) Publish(_ context.Context, userID uint, message any) error {
	f.published = append(f.published, struct {
		UserID  uint
		Message any
	}{userID, message})
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeNotifier) {
	t.Helper()
	db := newTestDB(t)
	notifier := &fakeNotifier{}
	return NewService(db, NewResolver(db), notifier), notifier
}

func TestSignUp_CreatesAccountAndProfile(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, NewResolver(db), nil)

	unified, err := service.SignUp(context.Background(), SignUpInput{
		Email:       "Bob@Uni.EDU",
		Password:    "secret-password",
		Role:        RoleStudent,
		DisplayName: "Bob Li",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if unified.Email != "bob@uni.edu" {
		t.Fatalf("expected lowercased email, got %q", unified.Email)
	}
	if unified.Role != RoleStudent {
		t.Fatalf("expected student role, got %s", unified.Role)
	}

	var profile database.StudentProfile
	if err := db.Where("user_id = ?", unified.ID).First(&profile).Error; err != nil {
		t.Fatalf("expected student profile row: %v", err)
	}
	if profile.FullName != "Bob Li" {
		t.Fatalf("expected full name on profile, got %q", profile.FullName)
	}
}

func TestSignUp_EmployerProfile(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, NewResolver(db), nil)

	unified, err := service.SignUp(context.Background(), SignUpInput{
		Email:       "hr@acme.com",
		Password:    "secret-password",
		Role:        RoleEmployer,
		DisplayName: "Acme",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	var profile database.EmployerProfile
	if err := db.Where("user_id = ?", unified.ID).First(&profile).Error; err != nil {
		t.Fatalf("expected employer profile row: %v", err)
	}
	if profile.CompanyName != "Acme" {
		t.Fatalf("expected company name on profile, got %q", profile.CompanyName)
	}
}

func TestSignUp_EmailTaken(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, NewResolver(db), nil)
	ctx := context.Background()

	in := SignUpInput{Email: "dup@uni.edu", Password: "secret-password", Role: RoleStudent, DisplayName: "First"}
	if _, err := service.SignUp(ctx, in); err != nil {
		t.Fatalf("first sign up: %v", err)
	}

	in.DisplayName = "Second"
	if _, err := service.SignUp(ctx, in); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	var count int64
	if err := db.Model(&database.User{}).Where("email = ?", "dup@uni.edu").Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one account, got %d", count)
	}
}

func TestSignUp_InvalidRole(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.SignUp(context.Background(), SignUpInput{
		Email:       "x@uni.edu",
		Password:    "secret-password",
		Role:        Role("admin"),
		DisplayName: "X",
	})
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestSignIn(t *testing.T) {
	service, notifier := newTestService(t)
	ctx := context.Background()

	if _, err := service.SignUp(ctx, SignUpInput{
		Email:       "carol@uni.edu",
		Password:    "correct-password",
		Role:        RoleStudent,
		DisplayName: "Carol Wu",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	unified, err := service.SignIn(ctx, "carol@uni.edu", "correct-password")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if unified.Role != RoleStudent || unified.DisplayName != "Carol Wu" {
		t.Fatalf("unexpected unified user: %+v", unified)
	}

	if len(notifier.published) == 0 {
		t.Fatal("expected a session event to be published")
	}
	last := notifier.published[len(notifier.published)-1]
	event, ok := last.Message.(notify.SessionEvent)
	if !ok {
		t.Fatalf("expected SessionEvent, got %T", last.Message)
	}
	if event.Event != notify.SessionSignedIn {
		t.Fatalf("expected signed_in event, got %q", event.Event)
	}
}

// 口令错误与账号不存在必须返回同一个错误，避免账号枚举。
func TestSignIn_InvalidCredentials(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, err := service.SignUp(ctx, SignUpInput{
		Email:       "dave@uni.edu",
		Password:    "correct-password",
		Role:        RoleStudent,
		DisplayName: "Dave",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if _, err := service.SignIn(ctx, "dave@uni.edu", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := service.SignIn(ctx, "nobody@uni.edu", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestSignOut_PublishesEvent(t *testing.T) {
	service, notifier := newTestService(t)
	user := &UnifiedUser{ID: 7, Email: "eve@uni.edu", Role: RoleEmployer, DisplayName: "Eve Ltd"}

	service.SignOut(context.Background(), user)

	if len(notifier.published) != 1 {
		t.Fatalf("expected one event, got %d", len(notifier.published))
	}
	event, ok := notifier.published[0].Message.(notify.SessionEvent)
	if !ok {
		t.Fatalf("expected SessionEvent, got %T", notifier.published[0].Message)
	}
	if event.Event != notify.SessionSignedOut || event.UserID != 7 {
		t.Fatalf("unexpected event: %+v", event)
	}
}
