package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sportscentre/internal/components/telemetry"
	"sportscentre/internal/portal/pages"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_booking_add      = "booking.add"
	report_booking_checkout = "booking.checkout"
	report_booking_confirm  = "booking.confirm"
)

// BookingEngine adds slots to the session's basket and pays for it.
type BookingEngine struct {
	tel telemetry.API
}

func NewBookingEngine(tel telemetry.API) BookingEngine {
	return BookingEngine{tel: telemetry.NewScopedAPI("booking", tel)}
}

type addBookingResponse struct {
	Success bool   `json:"Success"`
	Message string `json:"Message"`
}

// AddToBasket asks the portal to put the slot with the given id in the basket. It fails with
// *ConflictError when the account already holds an overlapping booking and with *BookingError
// for any other refusal.
func (e BookingEngine) AddToBasket(ctx context.Context, s *Session, slotId int) error {
	ctx, span := tracer.Start(ctx, "addToBasket")
	defer span.End()
	span.SetAttributes(attribute.Int("portal.slot", slotId))

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.transport.follow.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetQueryParam("booking", strconv.Itoa(slotId)).
		Get(pathAddBooking)
	err = s.checkResponse("add booking", res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to add booking")
		e.tel.ReportBroken(report_booking_add, err, slotId)
		return err
	}

	var result addBookingResponse
	err = json.Unmarshal(res.Body(), &result)
	if err != nil {
		err = &ParsingError{Page: pages.PageBasket, Reason: "add booking response", Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse add booking response")
		e.tel.ReportBroken(report_booking_add, err, slotId)
		return err
	}
	if result.Success {
		return nil
	}

	span.SetStatus(codes.Error, "booking rejected")
	if strings.HasPrefix(strings.TrimSpace(result.Message), ConflictPrefix) {
		return &ConflictError{Message: result.Message}
	}
	e.tel.ReportWarning(report_booking_add, slotId, result.Message)
	return &BookingError{Message: result.Message}
}

// Checkout submits the basket for payment. It returns true when the portal accepted the payment
// step by redirecting, which does not mean the payment went through, and false for any other
// answer.
func (e BookingEngine) Checkout(ctx context.Context, s *Session) (bool, error) {
	ctx, span := tracer.Start(ctx, "checkout")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.transport.probe.R().
		SetContext(ctx).
		Get(pathPay)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make pay request")
		e.tel.ReportBroken(report_booking_checkout, err)
		return false, fmt.Errorf("pay: %w", err)
	}
	if authRequired(res) {
		s.expire()
		span.SetStatus(codes.Error, "session expired")
		return false, fmt.Errorf("pay: %w", ErrSessionExpired)
	}
	if res.StatusCode() != http.StatusFound {
		e.tel.ReportDebug(report_booking_checkout, "payment step not accepted", res.Status())
		return false, nil
	}

	// the confirmation page is informational, the redirect is the only signal the portal gives
	confirm, err := s.transport.follow.R().
		SetContext(ctx).
		Get(pathPaymentConfirmed)
	if err != nil {
		e.tel.ReportWarning(report_booking_confirm, err)
	} else if confirm.StatusCode() != http.StatusOK {
		e.tel.ReportWarning(report_booking_confirm, confirm.Status())
	}
	return true, nil
}
