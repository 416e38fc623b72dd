package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/todokeeper/internal/client/models"
	"github.com/dmitrijs2005/todokeeper/internal/common"
	"github.com/dmitrijs2005/todokeeper/internal/logging"
)

// Subscriber observes session transitions. It receives the new current user,
// or nil when the session becomes anonymous.
type Subscriber func(user *models.User)

// SessionService tracks the current user and mediates the identity
// transitions: bootstrap on launch, login, signup and logout.
//
// Contract:
//   - Bootstrap: restore the persisted session pointer, once at startup.
//   - Login/Signup: report success as a bool; on failure the session stays
//     anonymous and durable state is untouched. A failed login does not
//     reveal whether the email or the password was wrong.
//   - Logout: clear the session pointer and return to anonymous.
//   - Subscribe: register an observer of session transitions; the returned
//     function cancels the subscription.
//
// Construct one instance at process start and share it; it is not a
// package-level singleton.
type SessionService interface {
	Bootstrap(ctx context.Context)
	Login(ctx context.Context, email, password string) bool
	Signup(ctx context.Context, name, email, password string) bool
	Logout(ctx context.Context)
	Current() *models.User
	Subscribe(fn Subscriber) (cancel func())
}

type sessionService struct {
	storage StorageService
	log     logging.Logger
	now     func() time.Time

	mu      sync.Mutex
	current *models.User
	subs    map[int]Subscriber
	nextSub int
}

// SessionOption customizes a session service.
type SessionOption func(*sessionService)

// WithSessionClock replaces the wall clock used for signup-time user ids.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *sessionService) { s.now = now }
}

// NewSessionService constructs a SessionService over the given storage.
// The initial state is anonymous until Bootstrap resolves.
func NewSessionService(storage StorageService, log logging.Logger, opts ...SessionOption) SessionService {
	s := &sessionService{
		storage: storage,
		log:     log,
		now:     time.Now,
		subs:    make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// setCurrent updates the in-memory session state and notifies subscribers.
// Notifications run outside the lock so subscribers may call back in.
func (s *sessionService) setCurrent(user *models.User) {
	s.mu.Lock()
	s.current = user
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(user)
	}
}

// Bootstrap restores the session pointer persisted by a previous run.
// The session stays anonymous when no pointer is stored.
func (s *sessionService) Bootstrap(ctx context.Context) {
	user := s.storage.CurrentUser(ctx)
	if user == nil {
		s.log.Debug(ctx, "no persisted session, staying anonymous")
		return
	}
	s.log.Info(ctx, "session restored", "email", user.Email)
	s.setCurrent(user)
}

// Login authenticates by email and literal password equality. On success
// the session pointer is persisted and subscribers are notified. The caller
// cannot distinguish an unknown email from a wrong password.
func (s *sessionService) Login(ctx context.Context, email, password string) bool {
	user := s.storage.FindUserByEmail(ctx, email)
	if user == nil || user.Password != password {
		s.log.Info(ctx, "login failed", "email", email)
		return false
	}

	s.storage.SetCurrentUser(ctx, user)
	s.setCurrent(user)
	s.log.Info(ctx, "login successful", "email", email)
	return true
}

// Signup registers a new account and logs it in. Fails without touching any
// state when the email is already taken.
func (s *sessionService) Signup(ctx context.Context, name, email, password string) bool {
	if existing := s.storage.FindUserByEmail(ctx, email); existing != nil {
		s.log.Info(ctx, "signup rejected, email already registered", "email", email)
		return false
	}

	user := models.User{
		ID:       common.TimestampID(s.now()),
		Name:     name,
		Email:    email,
		Password: password,
	}

	s.storage.SaveUser(ctx, user)
	s.storage.SetCurrentUser(ctx, &user)
	s.setCurrent(&user)
	s.log.Info(ctx, "signup successful", "email", email)
	return true
}

// Logout clears the persisted session pointer and returns to anonymous.
// The user's todos are left in place.
func (s *sessionService) Logout(ctx context.Context) {
	s.storage.SetCurrentUser(ctx, nil)
	s.setCurrent(nil)
	s.log.Info(ctx, "logged out")
}

// Current returns the authenticated user, or nil when anonymous.
func (s *sessionService) Current() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	user := *s.current
	return &user
}

// Subscribe registers fn to be called on every session transition. The
// returned cancel function removes the subscription and is safe to call
// more than once.
func (s *sessionService) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
