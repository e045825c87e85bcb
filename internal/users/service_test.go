package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudsaver/cloudsaver/internal/docstore"
	"github.com/cloudsaver/cloudsaver/internal/security"
)

type recordingMailer struct {
	email string
	token string
}

func (m *recordingMailer) EnqueuePasswordReset(ctx context.Context, email, token string) error {
	m.email = email
	m.token = token
	return nil
}

func newTestService() (*Service, *recordingMailer) {
	mailer := &recordingMailer{}
	// minimal argon2 cost keeps the suite fast
	hasher := security.NewHasher(8*1024, 1, 1)
	return NewService(docstore.NewMemory(), hasher, mailer, nil), mailer
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	svc.SetClock(func() time.Time { return now })

	user, err := svc.Register(ctx, RegisterRequest{Email: "Ada@Example.com", Password: "hunter22!", DisplayName: "Ada"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("email must be normalized, got %q", user.Email)
	}
	if user.DisplayName != "Ada" || user.ID == "" {
		t.Fatalf("unexpected user: %+v", user)
	}

	now = base.Add(time.Hour)
	loggedIn, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "hunter22!"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !loggedIn.LastLoginAt.After(user.LastLoginAt) {
		t.Fatalf("last_login_at must advance on login")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "password1", DisplayName: "A"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterRequest{Email: "A@B.C", Password: "password2", DisplayName: "B"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	if _, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.c", Password: "short", DisplayName: "A"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "password1", DisplayName: "A"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "a@b.c", Password: "password2"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "nobody@b.c", Password: "password1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must read as invalid credentials, got %v", err)
	}
}

func TestUpdateDisplayName(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "password1", DisplayName: "A"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	updated, err := svc.UpdateDisplayName(ctx, user.ID, "Ada L")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName != "Ada L" {
		t.Fatalf("unexpected display name: %q", updated.DisplayName)
	}
	if updated.Email != user.Email || !updated.CreatedAt.Equal(user.CreatedAt) {
		t.Fatalf("other fields must survive: %+v", updated)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()

	svc, mailer := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "password1", DisplayName: "A"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.RequestPasswordReset(ctx, "a@b.c"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if mailer.token == "" || mailer.email != "a@b.c" {
		t.Fatalf("reset mail not enqueued: %+v", mailer)
	}

	if err := svc.CompletePasswordReset(ctx, mailer.token, "password2!"); err != nil {
		t.Fatalf("complete reset: %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "a@b.c", Password: "password2!"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "a@b.c", Password: "password1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}

	// token is single use
	if err := svc.CompletePasswordReset(ctx, mailer.token, "password3!"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	t.Parallel()

	svc, mailer := newTestService()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	svc.SetClock(func() time.Time { return now })

	if _, err := svc.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "password1", DisplayName: "A"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.RequestPasswordReset(ctx, "a@b.c"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	now = base.Add(2 * time.Hour)
	if err := svc.CompletePasswordReset(ctx, mailer.token, "password2!"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	t.Parallel()

	svc, mailer := newTestService()
	if err := svc.RequestPasswordReset(context.Background(), "nobody@b.c"); err != nil {
		t.Fatalf("unknown email must not fail, got %v", err)
	}
	if mailer.token != "" {
		t.Fatalf("no mail should be enqueued for unknown email")
	}
}
