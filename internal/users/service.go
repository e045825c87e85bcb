package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudsaver/cloudsaver/internal/docstore"
	"github.com/cloudsaver/cloudsaver/internal/security"
)

const (
	usersCollection  = "users"
	resetsCollection = "password_resets"

	minPasswordLength = 8
	resetTokenTTL     = time.Hour
)

// Mailer delivers account mail out of band. The caller never waits on
// delivery; enqueue failures are logged, not surfaced.
type Mailer interface {
	EnqueuePasswordReset(ctx context.Context, email, token string) error
}

// Service manages account documents: registration, credential checks, profile
// updates and password resets. Each user is one document in the users
// collection, decoded into the fixed User shape; unknown stored fields are
// ignored.
type Service struct {
	store  docstore.Store
	hasher *security.Hasher
	mailer Mailer
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store docstore.Store, hasher *security.Hasher, mailer Mailer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		hasher: hasher,
		mailer: mailer,
		logger: log.With(slog.String("component", "users")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	email := normalizeEmail(req.Email)
	displayName := strings.TrimSpace(req.DisplayName)
	if email == "" {
		return User{}, fmt.Errorf("email is required")
	}
	if displayName == "" {
		return User{}, fmt.Errorf("display name is required")
	}
	if len(req.Password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	if _, err := s.findByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return User{}, err
	}
	doc, err := s.store.Insert(ctx, usersCollection, "", map[string]interface{}{
		"email":        email,
		"displayName":  displayName,
		"passwordHash": hash,
		"lastLoginAt":  s.now().Format(time.RFC3339Nano),
		"settings":     map[string]interface{}{},
	})
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user registered", slog.String("user_id", doc.ID))
	return fromDocument(doc), nil
}

// Login verifies credentials and advances last_login_at. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (User, error) {
	doc, err := s.findByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	hash, _ := doc.Data["passwordHash"].(string)
	if !s.hasher.Verify(req.Password, hash) {
		return User{}, ErrInvalidCredentials
	}
	updated, err := s.store.Update(ctx, usersCollection, doc.ID, map[string]interface{}{
		"lastLoginAt": s.now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return User{}, err
	}
	return fromDocument(updated), nil
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	doc, err := s.store.Get(ctx, usersCollection, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return fromDocument(doc), nil
}

func (s *Service) UpdateDisplayName(ctx context.Context, userID, displayName string) (User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return User{}, fmt.Errorf("display name is required")
	}
	doc, err := s.store.Update(ctx, usersCollection, userID, map[string]interface{}{
		"displayName": displayName,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return fromDocument(doc), nil
}

// RequestPasswordReset issues a single-use reset token and hands it to the
// mailer. The outcome is identical whether or not the email has an account,
// so the endpoint cannot be used to enumerate addresses.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	doc, err := s.findByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Info("password reset for unknown email ignored")
			return nil
		}
		return err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := hex.EncodeToString(raw)
	expiresAt := s.now().Add(resetTokenTTL)
	if _, err := s.store.Insert(ctx, resetsCollection, doc.ID, map[string]interface{}{
		"token":     token,
		"expiresAt": expiresAt.Format(time.RFC3339Nano),
		"usedAt":    "",
	}); err != nil {
		return err
	}
	if s.mailer != nil {
		if err := s.mailer.EnqueuePasswordReset(ctx, normalizeEmail(email), token); err != nil {
			s.logger.Warn("enqueue password reset mail failed", slog.Any("error", err))
		}
	}
	return nil
}

func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	resets, err := s.store.Find(ctx, docstore.Query{
		Collection: resetsCollection,
		Filters:    []docstore.Filter{{Field: "token", Value: token}},
	})
	if err != nil {
		return err
	}
	if len(resets) == 0 {
		return ErrInvalidResetToken
	}
	reset := resets[0]
	if usedAt, _ := reset.Data["usedAt"].(string); usedAt != "" {
		return ErrInvalidResetToken
	}
	expiresRaw, _ := reset.Data["expiresAt"].(string)
	expiresAt, err := time.Parse(time.RFC3339Nano, expiresRaw)
	if err != nil || s.now().After(expiresAt) {
		return ErrInvalidResetToken
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.store.Update(ctx, usersCollection, reset.OwnerID, map[string]interface{}{
		"passwordHash": hash,
	}); err != nil {
		return err
	}
	_, err = s.store.Update(ctx, resetsCollection, reset.ID, map[string]interface{}{
		"usedAt": s.now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	s.logger.Info("password reset completed", slog.String("user_id", reset.OwnerID))
	return nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (docstore.Document, error) {
	docs, err := s.store.Find(ctx, docstore.Query{
		Collection: usersCollection,
		Filters:    []docstore.Filter{{Field: "email", Value: email}},
	})
	if err != nil {
		return docstore.Document{}, err
	}
	if len(docs) == 0 {
		return docstore.Document{}, ErrUserNotFound
	}
	return docs[0], nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func fromDocument(doc docstore.Document) User {
	email, _ := doc.Data["email"].(string)
	displayName, _ := doc.Data["displayName"].(string)
	settings, _ := doc.Data["settings"].(map[string]interface{})
	var lastLogin time.Time
	if raw, ok := doc.Data["lastLoginAt"].(string); ok && raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			lastLogin = ts.UTC()
		}
	}
	return User{
		ID:          doc.ID,
		Email:       email,
		DisplayName: displayName,
		Settings:    settings,
		CreatedAt:   doc.CreatedAt,
		LastLoginAt: lastLogin,
	}
}
