package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/mailer"
	"github.com/billbatista/acasinha-finance/user"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrInvalidResetCode   = errors.New("invalid or expired code")
)

const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventPasswordReset  = "user.password_reset"

	DefaultResetTTL = 15 * time.Minute
)

type Service struct {
	users    user.Repository
	codes    ResetStore
	tokens   *Tokens
	mail     mailer.Mailer
	events   eventlogger.Recorder
	resetTTL time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

func WithEvents(r eventlogger.Recorder) Option {
	return func(s *Service) {
		s.events = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.tokens.now = now
	}
}

func NewService(users user.Repository, codes ResetStore, tokens *Tokens, mail mailer.Mailer, opts ...Option) *Service {
	s := &Service{
		users:    users,
		codes:    codes,
		tokens:   tokens,
		mail:     mail,
		events:   eventlogger.Discard,
		resetTTL: DefaultResetTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Session struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *user.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, reg user.Registration) (*user.User, error) {
	u, err := s.users.Register(ctx, reg)
	if err != nil {
		return nil, err
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventUserRegistered),
		eventlogger.WithData(map[string]string{"user_id": u.ID.String(), "email": u.Email}),
		eventlogger.WithOwner(u.ID),
	))
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	if u == nil || s.users.VerifyPassword(u.PasswordHash, password) != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	token, expiresAt, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventUserLoggedIn),
		eventlogger.WithData(map[string]string{"user_id": u.ID.String()}),
		eventlogger.WithOwner(u.ID),
	))
	return &Session{AccessToken: token, ExpiresAt: expiresAt, User: u}, nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	if u == nil {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, firstName, lastName string) (*user.User, error) {
	if err := s.users.UpdateName(ctx, userID, firstName, lastName); err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

// ForgotPassword emails a reset code when the address belongs to a user. The
// result is the same whether or not it does.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("fetching user: %w", err)
	}
	if u == nil {
		slog.Info("password reset requested for unknown email")
		return nil
	}

	rc, err := newResetCode(u.ID, s.now().UTC(), s.resetTTL)
	if err != nil {
		return fmt.Errorf("generating reset code: %w", err)
	}
	if err := s.codes.Create(ctx, rc); err != nil {
		return err
	}

	if err := s.mail.Send(ctx, mailer.PasswordResetMessage(u.Email, rc.Code, s.resetTTL)); err != nil {
		slog.Error("failed to send reset code", "user_id", u.ID, "error", err)
	}
	return nil
}

func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	_, _, err := s.findResetCode(ctx, email, code)
	return err
}

// ResetPassword claims a valid code and then sets the new password. Only the
// request that claims the code changes the password.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := user.ValidatePassword(newPassword); err != nil {
		return err
	}
	u, rc, err := s.findResetCode(ctx, email, code)
	if err != nil {
		return err
	}

	claimed, err := s.codes.Claim(ctx, rc.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrInvalidResetCode
	}
	if err := s.users.UpdatePassword(ctx, u.ID, newPassword); err != nil {
		return err
	}

	if err := s.mail.Send(ctx, mailer.PasswordChangedMessage(u.Email)); err != nil {
		slog.Error("failed to send password changed email", "user_id", u.ID, "error", err)
	}
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(EventPasswordReset),
		eventlogger.WithData(map[string]string{"user_id": u.ID.String()}),
		eventlogger.WithOwner(u.ID),
	))
	return nil
}

func (s *Service) findResetCode(ctx context.Context, email, code string) (*user.User, *ResetCode, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching user: %w", err)
	}
	if u == nil {
		return nil, nil, ErrInvalidResetCode
	}

	rc, err := s.codes.FindValid(ctx, u.ID, code, s.now().UTC())
	if err != nil {
		return nil, nil, fmt.Errorf("fetching reset code: %w", err)
	}
	if rc == nil {
		return nil, nil, ErrInvalidResetCode
	}
	return u, rc, nil
}
