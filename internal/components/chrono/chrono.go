package chrono

import (
	"sync"
	"time"
)

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Location().
	Now() time.Time
	// Location is the timezone the portal renders its dates in.
	Location() *time.Location
}

type StandardImpl struct {
	location *time.Location
}

// london is loaded once so every StandardImpl compares equal.
var london = sync.OnceValues(func() (*time.Location, error) {
	return time.LoadLocation("Europe/London")
})

// NewStandardImpl binds the clock to Europe/London, the zone every portal page is rendered in.
func NewStandardImpl() (StandardImpl, error) {
	location, err := london()
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, for tests.
type FixedImpl struct {
	At time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.At
}

func (f FixedImpl) Location() *time.Location {
	return f.At.Location()
}
