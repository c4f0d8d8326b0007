package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hackgods/salon-booking/internal/auth"
	"github.com/hackgods/salon-booking/internal/logging"
	"github.com/hackgods/salon-booking/internal/notify"
)

type stubNotifier struct {
	mu   sync.Mutex
	sent []notify.Welcome
	err  error
}

func (s *stubNotifier) SendWelcome(_ context.Context, w notify.Welcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, w)
	return s.err
}

func newService(t *testing.T) (*Service, *MemoryRepository, *stubNotifier) {
	t.Helper()
	repo := NewMemoryRepository()
	n := &stubNotifier{}
	return NewService(repo, n, logging.Discard(), "secret", time.Hour), repo, n
}

func registerAna(t *testing.T, svc *Service) *Registration {
	t.Helper()
	reg, err := svc.Register(context.Background(), RegisterInput{
		Name: "Ana", Email: "Ana@Example.com", Phone: "644137667", Password: "secreto123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg
}

func TestRegister(t *testing.T) {
	svc, repo, n := newService(t)
	reg := registerAna(t, svc)

	if reg.UserID == "" || reg.Token == "" {
		t.Fatalf("unexpected registration %+v", reg)
	}
	claims, err := auth.ParseToken(reg.Token, "secret")
	if err != nil || claims.UserID != reg.UserID {
		t.Fatalf("token does not carry user id: %v", err)
	}

	u, err := repo.GetUserByID(context.Background(), reg.UserID)
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "secreto123" || !auth.CheckPassword(u.PasswordHash, "secreto123") {
		t.Error("password not stored as a hash")
	}
	if u.AppointmentCount != 0 {
		t.Errorf("appointment count = %d", u.AppointmentCount)
	}
	if len(n.sent) != 1 || n.sent[0].Email != "ana@example.com" {
		t.Errorf("welcome mail not sent: %+v", n.sent)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newService(t)

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"empty name", RegisterInput{Email: "a@b.com", Phone: "1", Password: "x"}, ErrMissingFields},
		{"empty email", RegisterInput{Name: "A", Phone: "1", Password: "x"}, ErrMissingFields},
		{"empty phone", RegisterInput{Name: "A", Email: "a@b.com", Password: "x"}, ErrMissingFields},
		{"empty password", RegisterInput{Name: "A", Email: "a@b.com", Phone: "1"}, ErrMissingFields},
		{"blank name", RegisterInput{Name: "  ", Email: "a@b.com", Phone: "1", Password: "x"}, ErrMissingFields},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Phone: "1", Password: "x"}, ErrInvalidEmail},
		{"password too long", RegisterInput{Name: "A", Email: "a@b.com", Phone: "1", Password: strings.Repeat("ñ", 37)}, ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	registerAna(t, svc)

	variants := []RegisterInput{
		{Name: "Ana", Email: "ana@example.com", Phone: "644137667", Password: "secreto123"},
		{Name: "Otra", Email: "ANA@example.com", Phone: "000", Password: "distinta"},
		{Name: "X", Email: " ana@example.com ", Phone: "1", Password: "y"},
	}
	for _, in := range variants {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrEmailAlreadyRegistered) {
			t.Fatalf("register %+v: expected ErrEmailAlreadyRegistered, got %v", in, err)
		}
	}
}

func TestRegisterWelcomeFailureIsNonFatal(t *testing.T) {
	svc, _, n := newService(t)
	n.err = errors.New("smtp down")

	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Ana", Email: "ana@example.com", Phone: "1", Password: "secreto123",
	}); err != nil {
		t.Fatalf("register must succeed when mail fails: %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newService(t)
	reg := registerAna(t, svc)

	sess, err := svc.Login(context.Background(), "ana@example.com", "secreto123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.User.ID != reg.UserID || sess.User.Name != "Ana" || sess.Token == "" {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := newService(t)
	registerAna(t, svc)

	if _, err := svc.Login(context.Background(), "nadie@example.com", "secreto123"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "", ""); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("empty: expected ErrMissingFields, got %v", err)
	}

	// any single character change must fail
	mutations := []string{"Secreto123", "secreto12", "secreto1234", "xecreto123", "secreto124", "secret0123"}
	for _, pw := range mutations {
		if _, err := svc.Login(context.Background(), "ana@example.com", pw); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("password %q: expected ErrInvalidCredentials, got %v", pw, err)
		}
	}
}

func TestGetProfile(t *testing.T) {
	svc, repo, _ := newService(t)
	reg := registerAna(t, svc)
	_ = repo.IncrementAppointmentCount(context.Background(), reg.UserID)

	p, err := svc.GetProfile(context.Background(), reg.UserID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.AppointmentCount != 1 {
		t.Fatalf("appointment count = %d", p.AppointmentCount)
	}

	if _, err := svc.GetProfile(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
