package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/hackgods/salon-booking/internal/auth"
	"github.com/hackgods/salon-booking/internal/notify"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrPasswordTooLong = errors.New("password longer than 72 bytes")
)

// bcrypt only hashes the first 72 bytes and rejects longer input.
const maxPasswordBytes = 72

type Notifier interface {
	SendWelcome(ctx context.Context, w notify.Welcome) error
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type Registration struct {
	UserID string
	Token  string
}

type Session struct {
	Token string
	User  Profile
}

type Service struct {
	repo        Repository
	notifier    Notifier
	log         *slog.Logger
	secret      string
	tokenTTL    time.Duration
	mailTimeout time.Duration
}

func NewService(repo Repository, notifier Notifier, logger *slog.Logger, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		repo:        repo,
		notifier:    notifier,
		log:         logger,
		secret:      secret,
		tokenTTL:    tokenTTL,
		mailTimeout: 10 * time.Second,
	}
}

// Register creates the user and sends a best-effort welcome mail.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" || in.Email == "" || in.Phone == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	// the unique index on email is the real guard; this check keeps the
	// common case free of a failed insert
	if _, err := s.repo.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	id, err := auth.NewUserID()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           id,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailAlreadyRegistered) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", "user_id", u.ID)

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mailTimeout)
	defer cancel()
	if err := s.notifier.SendWelcome(mailCtx, notify.Welcome{Name: u.Name, Email: u.Email}); err != nil {
		s.log.Warn("welcome mail failed", "user_id", u.ID, "error", err)
	}

	tok, err := auth.MakeToken(u.ID, s.secret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("make token: %w", err)
	}
	return &Registration{UserID: u.ID, Token: tok}, nil
}

// Login distinguishes ErrUserNotFound from ErrInvalidCredentials; callers
// facing the network should collapse the two.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	tok, err := auth.MakeToken(u.ID, s.secret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("make token: %w", err)
	}
	return &Session{Token: tok, User: u.Profile()}, nil
}

func (s *Service) GetProfile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	p := u.Profile()
	return &p, nil
}
