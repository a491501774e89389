package portal

import "strings"

// DefaultBaseUrl is the Lancaster University Sports Centre tenant of Legend Online Services.
const DefaultBaseUrl = "https://lancaster.legendonlineservices.co.uk/enterprise"

const (
	pathLogin            = "/account/login"
	pathProfile          = "/Account/CSC"
	pathMyBookings       = "/BookingsCentre/MyBookings"
	pathSelectClub       = "/bookingscentre/behaviours"
	pathSelectCategory   = "/bookingscentre/activities"
	pathSelectActivity   = "/bookingscentre/activitySelect"
	pathTimetable        = "/bookingscentre/TimeTable"
	pathAddBooking       = "/BookingsCentre/AddBooking"
	pathPay              = "/Basket/Pay"
	pathPaymentConfirmed = "/basket/paymentconfirmed"
)

// the only club the tenant has
const clubId = "1"

func isLoginUrl(u string) bool {
	return strings.Contains(strings.ToLower(u), pathLogin)
}
