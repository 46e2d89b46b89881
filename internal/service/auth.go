package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
	"github.com/Shivanand-hulikatti/spotlight/internal/repository"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*repository.Credentials, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (string, error)
	UserForToken(ctx context.Context, token string) (*model.User, error)
	Delete(ctx context.Context, token string) error
}

// AuthService registers users and manages their sessions.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	ttl      time.Duration
	validate *validator.Validate
	rec      Recorder
	log      *logrus.Logger
}

// NewAuthService constructs an AuthService issuing sessions valid for ttl.
func NewAuthService(users UserStore, sessions SessionStore, ttl time.Duration, rec Recorder, log *logrus.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		rec:      rec,
		log:      log,
	}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, string, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.check(req); err != nil {
		s.rec.AuthAttempt("register", false)
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, req.Name, req.Email, string(hash))
	if err != nil {
		s.rec.AuthAttempt("register", false)
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("register: %w", err)
	}

	token, err := s.sessions.Create(ctx, user.ID, s.ttl)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	s.rec.AuthAttempt("register", true)
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, token, nil
}

// Login checks credentials and issues a new session. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.check(req); err != nil {
		s.rec.AuthAttempt("login", false)
		return nil, "", err
	}

	creds, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		s.rec.AuthAttempt("login", false)
		if errors.Is(err, model.ErrNotFound) {
			return nil, "", model.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		s.rec.AuthAttempt("login", false)
		return nil, "", model.ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, creds.User.ID, s.ttl)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	s.rec.AuthAttempt("login", true)
	return &creds.User, token, nil
}

// Logout revokes token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.ErrUnauthenticated
	}
	return s.sessions.UserForToken(ctx, token)
}

// check runs struct validation and turns failures into user-facing
// messages.
func (s *AuthService) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &normalize.ValidationError{Errors: msgs}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		return "Please enter a valid email address."
	case "Password":
		if fe.Tag() == "min" {
			return "Password should be at least 6 characters."
		}
		return "Password is required."
	case "Name":
		if fe.Tag() == "max" {
			return "Name must be at most 100 characters."
		}
		return "Name is required."
	}
	return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
}
