package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/hackgods/salon-booking/internal/account"
	"github.com/hackgods/salon-booking/internal/calendar"
	"github.com/hackgods/salon-booking/internal/notify"
	"github.com/hackgods/salon-booking/internal/payment"
	redisclient "github.com/hackgods/salon-booking/internal/redis"
)

type stubUsers struct {
	*account.MemoryRepository
	incErr error
}

func (s *stubUsers) IncrementAppointmentCount(ctx context.Context, id string) error {
	if s.incErr != nil {
		return s.incErr
	}
	return s.MemoryRepository.IncrementAppointmentCount(ctx, id)
}

type fakeScheduler struct {
	mu        sync.Mutex
	events    map[string]calendar.Event
	deleted   []string
	busy      bool
	block     bool // Busy waits for ctx to expire
	insertErr error
	deleteErr error
	busyCalls int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{events: make(map[string]calendar.Event)}
}

func (f *fakeScheduler) Busy(ctx context.Context, _, _ time.Time) (bool, error) {
	f.mu.Lock()
	f.busyCalls++
	block, busy := f.block, f.busy
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return busy, nil
}

func (f *fakeScheduler) InsertEvent(_ context.Context, ev calendar.Event) (*calendar.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.events[ev.ID] = ev
	return &calendar.Created{ID: ev.ID, HTMLLink: "https://calendar.example/" + ev.ID}, nil
}

func (f *fakeScheduler) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.events, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakePayments struct {
	mu           sync.Mutex
	captures     map[string]*payment.Capture
	captureErr   error
	captureCalls int
	refunds      []string
}

func newFakePayments() *fakePayments {
	return &fakePayments{captures: make(map[string]*payment.Capture)}
}

func (f *fakePayments) CaptureOrder(_ context.Context, orderID string) (*payment.Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captureCalls++
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	c, ok := f.captures[orderID]
	if !ok {
		return &payment.Capture{OrderID: orderID, Status: "APPROVED"}, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakePayments) RefundCapture(_ context.Context, captureID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, captureID)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.BookingConfirmation
	err  error
}

func (f *fakeNotifier) SendBookingConfirmation(_ context.Context, b notify.BookingConfirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, b)
	return f.err
}

type memLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	taken []string
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (l *memLocker) WithSlotLock(ctx context.Context, slot string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[slot] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[slot] = true
	l.taken = append(l.taken, slot)
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, slot)
		l.mu.Unlock()
	}()
	return fn(ctx)
}

type memClaims struct {
	mu      sync.Mutex
	pending map[string]bool
	done    map[string][]byte
}

func newMemClaims() *memClaims {
	return &memClaims{pending: make(map[string]bool), done: make(map[string][]byte)}
}

func (c *memClaims) Claim(_ context.Context, orderID string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.done[orderID]; ok {
		return v, false, nil
	}
	if c.pending[orderID] {
		return nil, false, redisclient.ErrClaimInFlight
	}
	c.pending[orderID] = true
	return nil, true, nil
}

func (c *memClaims) Complete(_ context.Context, orderID string, result []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, orderID)
	c.done[orderID] = result
	return nil
}

func (c *memClaims) Release(_ context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, orderID)
	return nil
}
