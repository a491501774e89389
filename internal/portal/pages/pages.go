// Package pages turns the portal's HTML into plain values. Every selector and every assumption
// about the portal's markup lives in this package, one file per page, so a change in the
// portal's layout only ever touches the parser for the page that changed.
package pages

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

const (
	PageLogin     = "login"
	PageTimetable = "timetable"
	PageBookings  = "bookings"
	PageProfile   = "profile"
	PageBasket    = "basket"
)

// ParsingError is returned whenever a page does not have the shape its parser expects.
type ParsingError struct {
	Page   string
	Reason string
	Err    error
}

func (e *ParsingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s page: %s: %v", e.Page, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s page: %s", e.Page, e.Reason)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

func parseError(page, reason string, err error) *ParsingError {
	return &ParsingError{Page: page, Reason: reason, Err: err}
}

func document(page string, body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, parseError(page, "read html", err)
	}
	return doc, nil
}

// Legend parses the markup served by Legend Online Services portals.
type Legend struct{}
