package portal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Credentials identify a portal account.
type Credentials struct {
	Username string
	Password string
}

// Session is one authenticated conversation with the portal. It holds the cookies the portal
// identifies the account by and the server-side filter state those cookies carry.
//
// Operations that touch the filter or the basket take the write lock, read-only page fetches
// take the read lock.
type Session struct {
	Id        string
	CreatedAt time.Time

	credentials Credentials
	transport   transport

	mu      sync.RWMutex
	filter  atomic.Int32
	expired atomic.Bool
}

func newSession(creds Credentials, t transport, now time.Time) *Session {
	return &Session{
		Id:          uuid.NewString(),
		CreatedAt:   now,
		credentials: creds,
		transport:   t,
	}
}

func (s *Session) FilterState() FilterState {
	return FilterState(s.filter.Load())
}

// Expired reports whether the portal has been seen asking this session to log in again, or the
// session was evicted from its manager.
func (s *Session) Expired() bool {
	return s.expired.Load()
}

func (s *Session) expire() {
	s.expired.Store(true)
}
