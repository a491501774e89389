// Package portal is a client for the Legend Online Services booking portal used by the
// Lancaster University Sports Centre. It logs in, walks the portal's filter sequence to list
// bookable slots, books and pays for them, and reads the account's bookings and details.
//
// The portal keeps the active filter in the server-side session, so every operation that
// changes it runs under the session's write lock. Nothing is retried: every failure is returned
// to the caller, and a session the portal has logged out is discarded so the next call logs in
// again.
package portal

import (
	"context"
	"errors"

	"sportscentre/internal/components/assert"
	"sportscentre/internal/components/chrono"
	"sportscentre/internal/components/telemetry"
	"sportscentre/internal/portal/pages"
)

type ClientOptions struct {
	Username string
	Password string

	// Sessions is the manager the client logs in through. When nil, clients built with equal
	// SessionOptions (after defaults, telemetry and clock included) share one process-wide
	// manager, so the same credentials log in once.
	Sessions       *SessionManager
	SessionOptions SessionOptions

	// Markup defaults to pages.Legend.
	Markup Markup
	// Telemetry defaults to a telemetry.SlogAPI on slog.Default().
	Telemetry telemetry.API
	// Time defaults to the Europe/London wall clock.
	Time chrono.API
}

// Client is the entry point of the package, it is safe for concurrent use.
type Client struct {
	credentials Credentials
	sessions    *SessionManager
	tel         telemetry.API

	catalog SlotCatalog
	engine  BookingEngine
	history BookingHistoryReader
	profile ProfileLoader
}

func NewClient(opts ClientOptions) (*Client, error) {
	assert.NotEmptyStr(opts.Username, "username")

	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NewSlogAPI(nil)
	}
	if opts.Time == nil {
		clock, err := chrono.NewStandardImpl()
		if err != nil {
			return nil, err
		}
		opts.Time = clock
	}
	if opts.Markup == nil {
		opts.Markup = pages.Legend{}
	}

	tel := telemetry.NewScopedAPI("portal", opts.Telemetry)

	sessions := opts.Sessions
	if sessions == nil {
		sessionOpts := opts.SessionOptions
		if sessionOpts.Markup == nil {
			sessionOpts.Markup = opts.Markup
		}
		if sessionOpts.Telemetry == nil {
			sessionOpts.Telemetry = tel
		}
		if sessionOpts.Time == nil {
			sessionOpts.Time = opts.Time
		}
		sessions = sharedSessionManager(sessionOpts)
	}

	return &Client{
		credentials: Credentials{Username: opts.Username, Password: opts.Password},
		sessions:    sessions,
		tel:         tel,
		catalog:     NewSlotCatalog(opts.Markup, tel, opts.Time),
		engine:      NewBookingEngine(tel),
		history:     NewBookingHistoryReader(opts.Markup, tel, opts.Time),
		profile:     NewProfileLoader(opts.Markup, tel),
	}, nil
}

// Login returns the client's session, logging in if there is no live one. Every other method
// calls it, so calling it directly is only needed to check the credentials up front.
func (c *Client) Login(ctx context.Context) (*Session, error) {
	return c.sessions.Login(ctx, c.credentials)
}

// Logout forgets the client's session. The portal is not told about it.
func (c *Client) Logout() {
	c.sessions.Invalidate(c.credentials)
}

// settle discards `s` when the portal has logged it out.
func (c *Client) settle(s *Session, err error) error {
	if errors.Is(err, ErrSessionExpired) {
		c.sessions.discard(c.credentials, s)
	}
	return err
}

// Slots returns the bookable slots of an activity, see SlotCatalog.Slots.
func (c *Client) Slots(ctx context.Context, category, activity int) ([]Slot, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	slots, err := c.catalog.Slots(ctx, s, category, activity)
	if err != nil {
		return nil, c.settle(s, err)
	}
	return c.own(slots), nil
}

// GymSlots returns the gym's slots within a window of base-60 hours, see SlotCatalog.GymSlots.
func (c *Client) GymSlots(ctx context.Context, after, before float64) ([]Slot, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	slots, err := c.catalog.GymSlots(ctx, s, after, before)
	if err != nil {
		return nil, c.settle(s, err)
	}
	return c.own(slots), nil
}

func (c *Client) own(slots []Slot) []Slot {
	for i := range slots {
		slots[i].owner = c
	}
	return slots
}

// AddToBasket puts the slot in the basket, see BookingEngine.AddToBasket.
func (c *Client) AddToBasket(ctx context.Context, slot Slot) error {
	s, err := c.Login(ctx)
	if err != nil {
		return err
	}
	return c.settle(s, c.engine.AddToBasket(ctx, s, slot.Id))
}

// Checkout pays for the basket. True means the portal answered the payment step with a
// redirect, not that the payment is confirmed. A redirect to the login page is not taken as
// acceptance: it returns false with ErrSessionExpired and the session is discarded.
func (c *Client) Checkout(ctx context.Context) (bool, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return false, err
	}
	accepted, err := c.engine.Checkout(ctx, s)
	return accepted, c.settle(s, err)
}

// Bookings returns the account's bookings, see BookingHistoryReader.Bookings.
func (c *Client) Bookings(ctx context.Context) ([]Booking, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := c.history.Bookings(ctx, s)
	if err != nil {
		return nil, c.settle(s, err)
	}
	return bookings, nil
}

// Profile returns the account holder's details, see ProfileLoader.Profile.
func (c *Client) Profile(ctx context.Context) (User, error) {
	s, err := c.Login(ctx)
	if err != nil {
		return User{}, err
	}
	user, err := c.profile.Profile(ctx, s)
	if err != nil {
		return User{}, c.settle(s, err)
	}
	return user, nil
}
