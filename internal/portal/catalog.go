package portal

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"sportscentre/internal/components/chrono"
	"sportscentre/internal/components/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_catalog_slots   = "catalog.slots"
	report_catalog_skipped = "catalog.skipped"
)

const (
	GymCategory = 701
	GymActivity = 729
)

// Slot is a bookable time window returned by the timetable.
type Slot struct {
	Start    time.Time
	End      time.Time
	Location string
	Spaces   int
	Id       int

	owner *Client
}

// AddToBasket adds the slot to the basket of the client that listed it.
func (s Slot) AddToBasket(ctx context.Context) error {
	if s.owner == nil {
		return fmt.Errorf("slot %d was not listed by a client", s.Id)
	}
	return s.owner.AddToBasket(ctx, s)
}

func compareSlots(a, b Slot) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := a.End.Compare(b.End); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Location, b.Location); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Spaces, b.Spaces); c != 0 {
		return c
	}
	return cmp.Compare(a.Id, b.Id)
}

// SlotCatalog walks the portal's filter sequence and reads the timetable it leads to.
type SlotCatalog struct {
	markup TimetablePage
	tel    telemetry.API
	time   chrono.API
}

func NewSlotCatalog(markup TimetablePage, tel telemetry.API, time chrono.API) SlotCatalog {
	return SlotCatalog{
		markup: markup,
		tel:    telemetry.NewScopedAPI("catalog", tel),
		time:   time,
	}
}

type filterStep struct {
	to   FilterState
	name string
	path string
	form map[string]string
}

// Slots returns every bookable slot of `activity` within `category`, sorted by start, end,
// location, spaces and id. The session's filter is restarted from the club every time.
func (c SlotCatalog) Slots(ctx context.Context, s *Session, category, activity int) ([]Slot, error) {
	ctx, span := tracer.Start(ctx, "slots")
	defer span.End()
	span.SetAttributes(
		attribute.Int("portal.category", category),
		attribute.Int("portal.activity", activity),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetFilter()

	steps := []filterStep{
		{
			to:   FilterClubSelected,
			name: "select club",
			path: pathSelectClub,
			form: map[string]string{"club": clubId},
		},
		{
			to:   FilterCategorySelected,
			name: "select category",
			path: pathSelectCategory,
			form: map[string]string{
				"behaviours":  strconv.Itoa(category),
				"bookingType": "0",
			},
		},
		{
			to:   FilterActivitySelected,
			name: "select activity",
			path: pathSelectActivity,
			form: map[string]string{"activity": strconv.Itoa(activity)},
		},
	}
	for _, step := range steps {
		if err := s.checkStep(step.to); err != nil {
			return nil, err
		}
		err := s.ajaxPost(ctx, step.name, step.path, step.form)
		if err != nil {
			s.invalidateFilter()
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("failed to %s", step.name))
			c.tel.ReportBroken(report_catalog_slots, err, category, activity)
			return nil, err
		}
		if err := s.advance(step.to); err != nil {
			return nil, err
		}
	}

	if err := s.checkStep(FilterTimetableReady); err != nil {
		return nil, err
	}
	body, err := s.get(ctx, "timetable", pathTimetable)
	if err != nil {
		s.invalidateFilter()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch timetable")
		c.tel.ReportBroken(report_catalog_slots, err, category, activity)
		return nil, err
	}
	if err := s.advance(FilterTimetableReady); err != nil {
		return nil, err
	}

	rows, skipped, err := c.markup.Timetable(body, c.time.Location())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse timetable")
		c.tel.ReportBroken(report_catalog_slots, err, category, activity)
		return nil, err
	}
	if skipped > 0 {
		c.tel.ReportDebug(report_catalog_skipped, skipped)
	}

	slots := make([]Slot, len(rows))
	for i, row := range rows {
		slots[i] = Slot{
			Start:    row.Start,
			End:      row.End,
			Location: row.Location,
			Spaces:   row.Spaces,
			Id:       row.Id,
		}
	}
	slices.SortFunc(slots, compareSlots)

	c.tel.ReportCount(report_catalog_slots, int64(len(slots)))
	return slots, nil
}

// GymSlots returns the gym's slots that start at or after `after` and end at or before
// `before`, both given as base-60 hours (see Base60Hour).
func (c SlotCatalog) GymSlots(ctx context.Context, s *Session, after, before float64) ([]Slot, error) {
	slots, err := c.Slots(ctx, s, GymCategory, GymActivity)
	if err != nil {
		return nil, err
	}
	from := Base60Hour(after)
	to := Base60Hour(before)

	var filtered []Slot
	for _, slot := range slots {
		if decimalHour(slot.Start) >= from && decimalHour(slot.End) <= to {
			filtered = append(filtered, slot)
		}
	}
	return filtered, nil
}
