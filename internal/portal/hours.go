package portal

import (
	"math"
	"time"
)

// Base60Hour converts an hour written as H.MM, where the fraction is minutes rather than a
// fraction of an hour, into decimal hours. ex. 9.30 becomes 9.5 and 9.5 becomes 9.8333.
//
// The conversion is literal: fractions of .60 or more give values past the next whole hour.
func Base60Hour(h float64) float64 {
	whole := math.Trunc(h)
	return whole + (h-whole)/0.60
}

// decimalHour returns the time of day of `t` in decimal hours.
func decimalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}
