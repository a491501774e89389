package portal

import (
	"errors"
	"fmt"

	"sportscentre/internal/portal/pages"
)

var (
	// ErrServiceUnavailable means the portal answered with something other than what the
	// protocol expects at that step, usually because it is down or its markup changed.
	ErrServiceUnavailable = errors.New("portal unavailable or changed shape")
	// ErrAuthentication means the credential submission was not accepted.
	ErrAuthentication = errors.New("incorrect username or password")
	// ErrSessionExpired means the portal asked for a login mid-session, the session has been
	// discarded and the next operation logs in again.
	ErrSessionExpired = errors.New("session expired")
	// ErrFilterOrder means a filter step was issued from the wrong FilterState.
	ErrFilterOrder = errors.New("filter step out of order")
)

// ConflictPrefix starts the message the portal answers with when the account already holds a
// booking that overlaps the one being added.
const ConflictPrefix = "You already have a booking"

// ConflictError is returned by AddToBasket when the account already holds an overlapping booking.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking conflict: %s", e.Message)
}

// BookingError is returned by AddToBasket for every other rejection.
type BookingError struct {
	Message string
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("booking rejected: %s", e.Message)
}

// ParsingError is returned when a page or response does not have the expected structure.
type ParsingError = pages.ParsingError
