package gtfs

import (
	"time"

	"github.com/Danyokkk/cybus/utils"
)

// Exception types from calendar_dates.txt
const (
	ExceptionAdded   = 1
	ExceptionRemoved = 2
)

// WeeklyService is one calendar.txt row
type WeeklyService struct {
	ServiceID string
	Days      [7]bool // indexed by time.Weekday
	Start     string  // YYYYMMDD inclusive
	End       string  // YYYYMMDD inclusive
}

func (w WeeklyService) runsOn(date string, wd time.Weekday) bool {
	if !w.Days[wd] {
		return false
	}
	if w.Start != "" && date < w.Start {
		return false
	}
	if w.End != "" && date > w.End {
		return false
	}
	return true
}

// ServiceCalendar maps dates to active service ids: the weekly calendar
// overridden by date exceptions.
type ServiceCalendar struct {
	weekly  []WeeklyService
	added   map[string]map[string]struct{} // date -> service ids
	removed map[string]map[string]struct{}
	first   string
	last    string
}

// NewServiceCalendar returns an empty calendar
func NewServiceCalendar() *ServiceCalendar {
	return &ServiceCalendar{
		added:   map[string]map[string]struct{}{},
		removed: map[string]map[string]struct{}{},
	}
}

// AddWeekly registers a calendar.txt row
func (c *ServiceCalendar) AddWeekly(w WeeklyService) {
	c.weekly = append(c.weekly, w)
	c.extend(w.Start)
	c.extend(w.End)
}

// AddException registers a calendar_dates.txt row. Unknown exception types are ignored.
func (c *ServiceCalendar) AddException(date, serviceID string, exceptionType int) {
	var m map[string]map[string]struct{}
	switch exceptionType {
	case ExceptionAdded:
		m = c.added
	case ExceptionRemoved:
		m = c.removed
	default:
		return
	}
	set, ok := m[date]
	if !ok {
		set = map[string]struct{}{}
		m[date] = set
	}
	set[serviceID] = struct{}{}
	c.extend(date)
}

func (c *ServiceCalendar) extend(date string) {
	if date == "" {
		return
	}
	if c.first == "" || date < c.first {
		c.first = date
	}
	if c.last == "" || date > c.last {
		c.last = date
	}
}

// Empty reports whether no calendar data was loaded
func (c *ServiceCalendar) Empty() bool {
	return c == nil || (len(c.weekly) == 0 && len(c.added) == 0 && len(c.removed) == 0)
}

// Span returns the first and last dates the calendar mentions
func (c *ServiceCalendar) Span() (string, string) {
	return c.first, c.last
}

// ActiveServices returns the service ids running on date (YYYYMMDD).
// A malformed date yields an empty set.
func (c *ServiceCalendar) ActiveServices(date string) map[string]struct{} {
	active := map[string]struct{}{}
	if c == nil {
		return active
	}
	t, err := time.Parse(utils.ServiceDateLayout, date)
	if err != nil {
		return active
	}
	wd := t.Weekday()
	for _, w := range c.weekly {
		if w.runsOn(date, wd) {
			active[w.ServiceID] = struct{}{}
		}
	}
	for id := range c.added[date] {
		active[id] = struct{}{}
	}
	for id := range c.removed[date] {
		delete(active, id)
	}
	return active
}

// ResolveServiceDate picks the date whose services a timetable should show.
// It returns date itself when anything runs on it, otherwise the next date
// within lookahead days that has service, otherwise the earliest date in the
// calendar with service. ok is false when nothing qualifies and callers
// should show every trip.
func (c *ServiceCalendar) ResolveServiceDate(date string, lookahead int) (resolved string, active map[string]struct{}, ok bool) {
	if c.Empty() {
		return "", nil, false
	}
	if active = c.ActiveServices(date); len(active) > 0 {
		return date, active, true
	}
	d := date
	for i := 0; i < lookahead; i++ {
		next, err := utils.AddDays(d, 1)
		if err != nil {
			break
		}
		d = next
		if c.last != "" && d > c.last && !c.openEnded() {
			break
		}
		if active = c.ActiveServices(d); len(active) > 0 {
			return d, active, true
		}
	}
	d = c.first
	for i := 0; i < lookahead && d != "" && d < date; i++ {
		if active = c.ActiveServices(d); len(active) > 0 {
			return d, active, true
		}
		next, err := utils.AddDays(d, 1)
		if err != nil {
			break
		}
		d = next
	}
	return "", nil, false
}

// openEnded reports whether a weekly service has no end date
func (c *ServiceCalendar) openEnded() bool {
	for _, w := range c.weekly {
		if w.End == "" {
			return true
		}
	}
	return false
}

// merge copies other's entries into c; service ids are already namespaced
func (c *ServiceCalendar) merge(other *ServiceCalendar) {
	if other == nil {
		return
	}
	for _, w := range other.weekly {
		c.AddWeekly(w)
	}
	for date, set := range other.added {
		for id := range set {
			c.AddException(date, id, ExceptionAdded)
		}
	}
	for date, set := range other.removed {
		for id := range set {
			c.AddException(date, id, ExceptionRemoved)
		}
	}
}
