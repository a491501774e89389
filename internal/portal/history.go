package portal

import (
	"context"

	"sportscentre/internal/components/chrono"
	"sportscentre/internal/components/telemetry"
	"sportscentre/internal/portal/pages"

	"go.opentelemetry.io/otel/codes"
)

const (
	report_history_bookings  = "history.bookings"
	report_history_overnight = "history.overnight"
)

// Booking is a reservation the account already holds. A booking that crosses midnight is
// reported with its end on the start's date, see Booking.Overnight.
type Booking = pages.Booking

// BookingHistoryReader reads the account's existing bookings.
type BookingHistoryReader struct {
	markup BookingsPage
	tel    telemetry.API
	time   chrono.API
}

func NewBookingHistoryReader(markup BookingsPage, tel telemetry.API, time chrono.API) BookingHistoryReader {
	return BookingHistoryReader{
		markup: markup,
		tel:    telemetry.NewScopedAPI("history", tel),
		time:   time,
	}
}

// Bookings returns the account's bookings in the order the portal lists them.
func (r BookingHistoryReader) Bookings(ctx context.Context, s *Session) ([]Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := s.get(ctx, "bookings", pathMyBookings)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch bookings")
		r.tel.ReportBroken(report_history_bookings, err)
		return nil, err
	}

	bookings, err := r.markup.Bookings(body, r.time.Location())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse bookings")
		r.tel.ReportBroken(report_history_bookings, err)
		return nil, err
	}

	for _, b := range bookings {
		if b.Overnight() {
			r.tel.ReportWarning(report_history_overnight, b.Name, b.Start)
		}
	}
	return bookings, nil
}
