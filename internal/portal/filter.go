package portal

import "fmt"

// FilterState is where a session stands in the portal's server-side filter sequence. The
// portal only serves a timetable after a club, a category and an activity have been selected
// in that order, and it remembers the selection per session.
type FilterState int32

const (
	FilterUnfiltered FilterState = iota
	FilterClubSelected
	FilterCategorySelected
	FilterActivitySelected
	FilterTimetableReady
	// FilterInvalid means a step failed midway, the next step must restart from the club.
	FilterInvalid
)

func (f FilterState) String() string {
	switch f {
	case FilterUnfiltered:
		return "unfiltered"
	case FilterClubSelected:
		return "club-selected"
	case FilterCategorySelected:
		return "category-selected"
	case FilterActivitySelected:
		return "activity-selected"
	case FilterTimetableReady:
		return "timetable-ready"
	case FilterInvalid:
		return "invalid"
	}
	return fmt.Sprintf("FilterState(%d)", int32(f))
}

// predecessors lists the states each state may be entered from.
var predecessors = map[FilterState][]FilterState{
	FilterClubSelected:     {FilterUnfiltered},
	FilterCategorySelected: {FilterClubSelected},
	FilterActivitySelected: {FilterCategorySelected},
	FilterTimetableReady:   {FilterActivitySelected},
}

func canEnter(from, to FilterState) bool {
	for _, p := range predecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}

// checkStep fails with ErrFilterOrder if the session cannot move to `to` from where it is.
func (s *Session) checkStep(to FilterState) error {
	from := s.FilterState()
	if !canEnter(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrFilterOrder, from, to)
	}
	return nil
}

// advance moves the session to `to`, it must only be called with the session's write lock held.
func (s *Session) advance(to FilterState) error {
	if err := s.checkStep(to); err != nil {
		return err
	}
	s.filter.Store(int32(to))
	return nil
}

// resetFilter starts a fresh filter sequence, selecting a club again replaces whatever the
// portal remembered for this session.
func (s *Session) resetFilter() {
	s.filter.Store(int32(FilterUnfiltered))
}

func (s *Session) invalidateFilter() {
	s.filter.Store(int32(FilterInvalid))
}
