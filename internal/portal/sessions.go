package portal

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"sportscentre/internal/components/assert"
	"sportscentre/internal/components/chrono"
	"sportscentre/internal/components/telemetry"
	"sportscentre/internal/portal/pages"
	"sportscentre/pkg/restyutil"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("sportscentre/portal")

const (
	report_sessions_login = "sessions.login"
	report_sessions_evict = "sessions.evict"
)

const (
	DefaultSessionTTL      = 20 * time.Minute
	DefaultRequestTimeout  = 30 * time.Second
	DefaultRateLimit       = rate.Limit(2)
	defaultSessionCapacity = 64
)

type SessionOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// RequestTimeout bounds every single request, it defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration
	// TTL is how long a session is reused before logging in again, it defaults to
	// DefaultSessionTTL.
	TTL time.Duration
	// Capacity is the number of credentials whose sessions are kept at once.
	Capacity int
	// RateLimit is the number of requests per second a session may make, it defaults to
	// DefaultRateLimit.
	RateLimit rate.Limit
	// DisableCloudflareBypass leaves the transport's TLS fingerprint untouched.
	DisableCloudflareBypass bool
	// Exchanges receives every request and response the sessions make, for debugging.
	Exchanges restyutil.Output

	Markup    LoginPage
	Telemetry telemetry.API
	Time      chrono.API
}

// SessionManager logs into the portal and memoizes one Session per Credentials until it expires,
// is evicted or is invalidated.
type SessionManager struct {
	opts  SessionOptions
	tel   telemetry.API
	cache *expirable.LRU[Credentials, *Session]

	// logins are serialized so concurrent callers with the same credentials share one session
	loginMu sync.Mutex
}

func (opts SessionOptions) withDefaults() SessionOptions {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.Capacity <= 0 {
		opts.Capacity = defaultSessionCapacity
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.Markup == nil {
		opts.Markup = pages.Legend{}
	}
	return opts
}

// NewSessionManager creates a manager of its own. Every manager keeps a background goroutine
// alive for the life of the process, so managers should be created once and shared, see
// ClientOptions.Sessions.
func NewSessionManager(opts SessionOptions) *SessionManager {
	assert.NotNil(opts.Telemetry, "telemetry")
	assert.NotNil(opts.Time, "time")
	opts = opts.withDefaults()

	tel := telemetry.NewScopedAPI("sessions", opts.Telemetry)
	m := &SessionManager{opts: opts, tel: tel}
	m.cache = expirable.NewLRU(
		opts.Capacity,
		func(creds Credentials, s *Session) {
			// whoever still holds it must not keep using it
			s.expire()
			tel.ReportDebug(report_sessions_evict, creds.Username, s.Id)
		},
		opts.TTL,
	)
	return m
}

var shared = struct {
	mu       sync.Mutex
	managers map[SessionOptions]*SessionManager
}{managers: map[SessionOptions]*SessionManager{}}

// sharedSessionManager returns the process-wide manager for `opts`, so clients configured the
// same way reuse each other's sessions. Options holding values that cannot be compared, ex. a
// telemetry implementation carrying a slice, get a manager of their own.
func sharedSessionManager(opts SessionOptions) *SessionManager {
	opts = opts.withDefaults()
	if !hashable(reflect.ValueOf(opts)) {
		return NewSessionManager(opts)
	}

	shared.mu.Lock()
	defer shared.mu.Unlock()

	if m, ok := shared.managers[opts]; ok {
		return m
	}
	m := NewSessionManager(opts)
	shared.managers[opts] = m
	return m
}

// hashable reports whether `v` can be used as a map key without panicking, nil interfaces
// included.
func hashable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface:
		return v.IsNil() || hashable(v.Elem())
	case reflect.Struct:
		for i := range v.NumField() {
			if !hashable(v.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := range v.Len() {
			if !hashable(v.Index(i)) {
				return false
			}
		}
		return true
	default:
		return v.Type().Comparable()
	}
}

// Login returns the cached session for `creds` or logs in and caches a new one.
func (m *SessionManager) Login(ctx context.Context, creds Credentials) (*Session, error) {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	if s, ok := m.cache.Get(creds); ok && !s.Expired() {
		return s, nil
	}

	s, err := m.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	m.cache.Add(creds, s)
	return s, nil
}

// Invalidate discards the session of `creds`, the next Login authenticates again.
func (m *SessionManager) Invalidate(creds Credentials) {
	m.cache.Remove(creds)
}

// discard removes `s` from the cache unless it was already replaced by a newer session.
func (m *SessionManager) discard(creds Credentials, s *Session) {
	m.loginMu.Lock()
	defer m.loginMu.Unlock()

	if cached, ok := m.cache.Peek(creds); ok && cached == s {
		m.cache.Remove(creds)
	}
}

// Cached returns the session currently held for `creds` without logging in.
func (m *SessionManager) Cached(creds Credentials) (*Session, bool) {
	s, ok := m.cache.Get(creds)
	if !ok || s.Expired() {
		return nil, false
	}
	return s, true
}

func (m *SessionManager) authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()
	span.SetAttributes(attribute.String("portal.username", creds.Username))

	t, err := newTransport(transportOptions{
		baseUrl:   m.opts.BaseUrl,
		timeout:   m.opts.RequestTimeout,
		rateLimit: m.opts.RateLimit,
		bypass:    !m.opts.DisableCloudflareBypass,
		tel:       m.tel,
		exchanges: m.opts.Exchanges,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create transport")
		return nil, err
	}

	res, err := t.follow.R().
		SetContext(ctx).
		Get(pathLogin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return nil, fmt.Errorf("fetch login page: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		span.SetStatus(codes.Error, "login page unavailable")
		m.tel.ReportBroken(report_sessions_login, fmt.Errorf("login page returned %s", res.Status()))
		return nil, fmt.Errorf("%w: login page returned %s", ErrServiceUnavailable, res.Status())
	}

	token, err := m.opts.Markup.LoginToken(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse login page")
		m.tel.ReportBroken(report_sessions_login, err)
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	if token == "" {
		span.SetStatus(codes.Error, "no anti-forgery token")
		m.tel.ReportBroken(report_sessions_login, "login page has no anti-forgery token")
		return nil, fmt.Errorf("%w: login page has no anti-forgery token", ErrServiceUnavailable)
	}

	res, err = t.probe.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"login.Email":                creds.Username,
			"login.Password":             creds.Password,
			"login.RedirectURL":          "",
			"__RequestVerificationToken": token,
		}).
		Post(pathLogin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit credentials")
		return nil, fmt.Errorf("submit credentials: %w", err)
	}
	// a successful login redirects, a failed one renders the form again
	if res.StatusCode() != http.StatusFound {
		span.SetStatus(codes.Error, "credentials rejected")
		m.tel.ReportWarning(report_sessions_login, creds.Username, res.Status())
		return nil, ErrAuthentication
	}

	s := newSession(creds, t, m.opts.Time.Now())
	span.SetAttributes(attribute.String("portal.session", s.Id))
	return s, nil
}
