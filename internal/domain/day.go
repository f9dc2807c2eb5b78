package domain

import (
	"cmp"
	"regexp"
	"slices"
	"time"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateDate checks a YYYY-MM-DD day key. Keys compare lexically in calendar order.
func ValidateDate(date string) error {
	if !dateRe.MatchString(date) {
		return validationError("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return validationError("date must be YYYY-MM-DD")
	}
	return nil
}

type Booking struct {
	ID           string    `json:"id,omitempty" bson:"id,omitempty"`
	Time         TimePoint `json:"time" bson:"time"`
	DurationMin  int       `json:"durationMin,omitempty" bson:"durationMin,omitempty"`
	Name         string    `json:"name" bson:"name"`
	Phone        string    `json:"phone" bson:"phone"`
	ServiceTitle string    `json:"serviceTitle,omitempty" bson:"serviceTitle,omitempty"`
	Price        string    `json:"price,omitempty" bson:"price,omitempty"`
	Paid         bool      `json:"paid" bson:"paid"`
	PaymentID    *string   `json:"paymentId" bson:"paymentId"`
	CreatedAt    time.Time `json:"createdAt,omitzero" bson:"createdAt,omitempty"`
}

// Duration is the stored length of the booking. Records written before durations were stored fall back
// to the default service length.
func (b Booking) Duration() int {
	if b.DurationMin > 0 {
		return b.DurationMin
	}
	return DefaultDuration
}

// DayDocument is the persisted aggregate for one calendar date.
// Blocked must contain every point of every booking span.
type DayDocument struct {
	Blocked  []TimePoint `json:"blocked" bson:"blocked"`
	Bookings []Booking   `json:"bookings" bson:"bookings"`
}

func EmptyDay() DayDocument {
	return DayDocument{Blocked: []TimePoint{}, Bookings: []Booking{}}
}

func (d DayDocument) Clone() DayDocument {
	out := DayDocument{
		Blocked:  append([]TimePoint{}, d.Blocked...),
		Bookings: make([]Booking, len(d.Bookings)),
	}
	for i, b := range d.Bookings {
		if b.PaymentID != nil {
			id := *b.PaymentID
			b.PaymentID = &id
		}
		out.Bookings[i] = b
	}
	return out
}

// Normalized returns a copy with non-nil slices and Blocked de-duplicated and ascending.
func (d DayDocument) Normalized() DayDocument {
	out := d.Clone()
	out.Blocked = normalizePoints(out.Blocked)
	return out
}

// BookingsByTime returns a copy of the bookings ordered by start time. Ties keep insertion order.
func (d DayDocument) BookingsByTime() []Booking {
	out := d.Clone().Bookings
	slices.SortStableFunc(out, func(a, b Booking) int {
		return cmp.Compare(a.Time, b.Time)
	})
	return out
}

func (d DayDocument) IsEmpty() bool {
	return len(d.Blocked) == 0 && len(d.Bookings) == 0
}

func (d DayDocument) FindBooking(t TimePoint) (int, bool) {
	for i, b := range d.Bookings {
		if b.Time == t {
			return i, true
		}
	}
	return -1, false
}

// BookingPoints is the union of every booking span of the day.
func BookingPoints(w WorkingWindow, d DayDocument) []TimePoint {
	var all []TimePoint
	for _, b := range d.Bookings {
		all = append(all, w.Span(b.Time, b.Duration())...)
	}
	return normalizePoints(all)
}

// OccupiedSet is the authoritative occupancy used for conflict checks. Booking spans are recomputed so a
// document whose Blocked lags behind its bookings still reports them as taken.
func OccupiedSet(w WorkingWindow, d DayDocument) []TimePoint {
	return unionPoints(d.Blocked, BookingPoints(w, d))
}

// MissingBookingPoints lists booking points absent from Blocked. Non-empty means a corrupted document.
func MissingBookingPoints(w WorkingWindow, d DayDocument) []TimePoint {
	return subtractPoints(BookingPoints(w, d), d.Blocked)
}

// BlockInterval is a run of blocked points not attributable to any booking.
type BlockInterval struct {
	Time        TimePoint `json:"time"`
	DurationMin int       `json:"durationMin"`
}

func DeriveAdminBlocks(w WorkingWindow, d DayDocument) []BlockInterval {
	pure := subtractPoints(d.Blocked, BookingPoints(w, d))
	if len(pure) == 0 {
		return []BlockInterval{}
	}

	out := make([]BlockInterval, 0, 4)
	runStart, runLen := pure[0], 1
	for i := 1; i < len(pure); i++ {
		if pure[i]-pure[i-1] == TimePoint(w.Step) {
			runLen++
			continue
		}
		out = append(out, BlockInterval{Time: runStart, DurationMin: runLen * w.Step})
		runStart, runLen = pure[i], 1
	}
	out = append(out, BlockInterval{Time: runStart, DurationMin: runLen * w.Step})
	return out
}

// FreeStarts lists grid starts where a service of the given length fits without touching occupancy.
func FreeStarts(w WorkingWindow, d DayDocument, duration int) []TimePoint {
	occupied := pointSet(OccupiedSet(w, d))
	out := make([]TimePoint, 0, w.Length()/w.Step)
	for _, t := range w.Slots() {
		if !w.IsStartValid(t, duration) {
			continue
		}
		if intersects(w.Span(t, duration), occupied) {
			continue
		}
		out = append(out, t)
	}
	return out
}
