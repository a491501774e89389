package portal

import (
	"time"

	"sportscentre/internal/portal/pages"
)

type LoginPage interface {
	// LoginToken returns the anti-forgery token of the login form, or "" if there is none.
	LoginToken(body []byte) (string, error)
}

type TimetablePage interface {
	// Timetable returns the bookable rows and the number of rows that were skipped.
	Timetable(body []byte, loc *time.Location) ([]pages.SlotRow, int, error)
}

type BookingsPage interface {
	Bookings(body []byte, loc *time.Location) ([]pages.Booking, error)
}

type ProfilePage interface {
	ProfileDetails(body []byte) ([]pages.Detail, error)
}

// Markup is everything the client needs to understand of the portal's HTML.
//
// note: fault injection point
type Markup interface {
	LoginPage
	TimetablePage
	BookingsPage
	ProfilePage
}

var _ Markup = pages.Legend{}
