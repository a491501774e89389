package pages

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sportscentre/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// BookableLabel is the text of the last cell of a timetable row that can be added to the basket.
const BookableLabel = "[ Add to Basket ]"

const (
	timetableRowSelector = "tr:not(.titleRow)"
	timetableDateLayout  = "2/1/2006 15:04"
)

var actionIdRegex = regexp.MustCompile(`\((\d+)\)`)

// SlotRow is one bookable row of the timetable.
type SlotRow struct {
	Start    time.Time
	End      time.Time
	Location string
	Spaces   int
	Id       int
}

// TimetableCells are the raw cell values of one timetable row.
type TimetableCells struct {
	Location string
	Date     string
	Time     string
	Spaces   string
	// Action is the onclick attribute of the row's add-to-basket anchor.
	Action string
}

// ParseSlotRow converts the raw cells of a bookable row into a SlotRow, with dates
// interpreted in `loc`.
func ParseSlotRow(cells TimetableCells, loc *time.Location) (SlotRow, error) {
	startStr, endStr, found := strings.Cut(cells.Time, " - ")
	if !found {
		return SlotRow{}, parseError(PageTimetable, fmt.Sprintf("time range %q", cells.Time), nil)
	}

	start, err := time.ParseInLocation(timetableDateLayout, cells.Date+" "+strings.TrimSpace(startStr), loc)
	if err != nil {
		return SlotRow{}, parseError(PageTimetable, "start time", err)
	}
	end, err := time.ParseInLocation(timetableDateLayout, cells.Date+" "+strings.TrimSpace(endStr), loc)
	if err != nil {
		return SlotRow{}, parseError(PageTimetable, "end time", err)
	}
	if !end.After(start) {
		return SlotRow{}, parseError(PageTimetable, fmt.Sprintf("slot %q ends before it starts", cells.Time), nil)
	}

	spacesFields := strings.Fields(cells.Spaces)
	if len(spacesFields) == 0 {
		return SlotRow{}, parseError(PageTimetable, "empty spaces cell", nil)
	}
	spaces, err := strconv.Atoi(spacesFields[0])
	if err != nil {
		return SlotRow{}, parseError(PageTimetable, "spaces", err)
	}
	if spaces < 0 {
		return SlotRow{}, parseError(PageTimetable, fmt.Sprintf("negative spaces %d", spaces), nil)
	}

	groups := actionIdRegex.FindStringSubmatch(cells.Action)
	if len(groups) < 2 {
		return SlotRow{}, parseError(PageTimetable, fmt.Sprintf("booking id in %q", cells.Action), nil)
	}
	id, err := strconv.Atoi(groups[1])
	if err != nil {
		return SlotRow{}, parseError(PageTimetable, "booking id", err)
	}

	return SlotRow{
		Start:    start,
		End:      end,
		Location: cells.Location,
		Spaces:   spaces,
		Id:       id,
	}, nil
}

// Timetable returns the bookable rows of the timetable page in document order along with
// the number of rows that were skipped because they could not be booked.
//
// Row layout: location, day, date, time, spaces, [...], action.
func (Legend) Timetable(body []byte, loc *time.Location) ([]SlotRow, int, error) {
	doc, err := document(PageTimetable, body)
	if err != nil {
		return nil, 0, err
	}

	var rows []SlotRow
	skipped := 0
	var rowErr error

	doc.Find(timetableRowSelector).EachWithBreak(func(i int, tr *goquery.Selection) bool {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return true
		}
		action := tds.Last()
		if htmlutil.Text(action) != BookableLabel {
			skipped++
			return true
		}
		if tds.Length() < 6 {
			rowErr = parseError(PageTimetable, fmt.Sprintf("row %d has %d cells", i, tds.Length()), nil)
			return false
		}

		row, err := ParseSlotRow(TimetableCells{
			Location: htmlutil.Text(tds.Eq(0)),
			Date:     htmlutil.Text(tds.Eq(2)),
			Time:     htmlutil.Text(tds.Eq(3)),
			Spaces:   htmlutil.Text(tds.Eq(4)),
			Action:   action.Find("a").First().AttrOr("onclick", ""),
		}, loc)
		if err != nil {
			rowErr = err
			return false
		}
		rows = append(rows, row)
		return true
	})
	if rowErr != nil {
		return nil, 0, rowErr
	}

	return rows, skipped, nil
}
