package pages

import (
	"fmt"
	"strings"
	"time"

	"sportscentre/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	bookingNameSelector = "h5.TextMembers"
	bookingDateLayout   = "2 January 2006 15:04"
)

// Booking is a reservation the account already holds.
type Booking struct {
	Start    time.Time
	End      time.Time
	Name     string
	Location string
	Status   string
}

// Overnight reports whether the booking's reconstructed end falls before its start. Bookings
// that cross midnight are listed by the portal as "<date> <start> - <end>" with no end date, so
// their end lands on the start's date.
func (b Booking) Overnight() bool {
	return b.End.Before(b.Start)
}

// ParseBookingFragment builds a Booking out of one fragment of the bookings page.
// `dateRange` has the form "<d Month yyyy> <HH:MM> - <HH:MM>", the end is paired with
// the start's date.
func ParseBookingFragment(name, status, location, dateRange string, loc *time.Location) (Booking, error) {
	startStr, endTime, found := strings.Cut(dateRange, " - ")
	if !found {
		return Booking{}, parseError(PageBookings, fmt.Sprintf("date range %q", dateRange), nil)
	}
	startStr = strings.TrimSpace(startStr)
	endTime = strings.TrimSpace(endTime)

	start, err := time.ParseInLocation(bookingDateLayout, startStr, loc)
	if err != nil {
		return Booking{}, parseError(PageBookings, "start date", err)
	}

	startFields := strings.Fields(startStr)
	if len(startFields) < 3 {
		return Booking{}, parseError(PageBookings, fmt.Sprintf("start date %q", startStr), nil)
	}
	endStr := strings.Join(startFields[:3], " ") + " " + endTime
	end, err := time.ParseInLocation(bookingDateLayout, endStr, loc)
	if err != nil {
		return Booking{}, parseError(PageBookings, "end date", err)
	}

	return Booking{
		Start:    start,
		End:      end,
		Name:     name,
		Location: location,
		Status:   status,
	}, nil
}

// Bookings returns every booking fragment of the bookings page in document order.
//
// Fragment layout:
//
//	<h5 class='TextMembers'>name</h5><p> (status)<br />Location: location<br />Date: range <...
func (Legend) Bookings(body []byte, loc *time.Location) ([]Booking, error) {
	doc, err := document(PageBookings, body)
	if err != nil {
		return nil, err
	}

	var bookings []Booking
	var fragmentErr error

	doc.Find(bookingNameSelector).EachWithBreak(func(i int, h5 *goquery.Selection) bool {
		name := htmlutil.Text(h5)

		var status, location, dateRange string
		for _, line := range htmlutil.TextLines(h5.NextFiltered("p")) {
			switch {
			case strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") && status == "":
				status = strings.TrimSpace(line[1 : len(line)-1])
			case strings.HasPrefix(line, "Location:"):
				location = strings.TrimSpace(strings.TrimPrefix(line, "Location:"))
			case strings.HasPrefix(line, "Date:"):
				dateRange = strings.TrimSpace(strings.TrimPrefix(line, "Date:"))
			}
		}
		if dateRange == "" {
			fragmentErr = parseError(PageBookings, fmt.Sprintf("booking %d (%q) has no date", i, name), nil)
			return false
		}

		booking, err := ParseBookingFragment(name, status, location, dateRange, loc)
		if err != nil {
			fragmentErr = err
			return false
		}
		bookings = append(bookings, booking)
		return true
	})
	if fragmentErr != nil {
		return nil, fragmentErr
	}

	return bookings, nil
}
