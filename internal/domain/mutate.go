package domain

import (
	"fmt"
	"strings"
	"time"
)

type ActionKind string

const (
	ActionBook         ActionKind = "book"
	ActionCancel       ActionKind = "cancel"
	ActionAdminBlock   ActionKind = "admin-block"
	ActionAdminUnblock ActionKind = "admin-unblock"
	ActionBlockDay     ActionKind = "block-day"
	ActionUnblockDay   ActionKind = "unblock-day"
)

// ParseActionKind maps a wire action name. An empty name is a client booking.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.TrimSpace(s)); k {
	case "":
		return ActionBook, nil
	case ActionBook, ActionCancel, ActionAdminBlock, ActionAdminUnblock, ActionBlockDay, ActionUnblockDay:
		return k, nil
	default:
		return "", validationError(fmt.Sprintf("unknown action %q", s))
	}
}

func (k ActionKind) RequiresAdmin() bool {
	return k != ActionBook
}

func (k ActionKind) needsTime() bool {
	return k != ActionBlockDay && k != ActionUnblockDay
}

// Action is one requested change to a day. DurationMin of zero means "not supplied".
type Action struct {
	Kind         ActionKind
	Time         string
	DurationMin  int
	Name         string
	Phone        string
	ServiceTitle string
	Price        string

	// BookingID and CreatedAt are assigned by the caller so Apply stays deterministic.
	BookingID string
	CreatedAt time.Time
}

// Result is the new day plus what the action touched, for notifications.
type Result struct {
	Day         DayDocument
	Start       TimePoint
	DurationMin int
	Booking     *Booking
	Changed     []TimePoint
}

// Apply runs one action against a loaded day and returns the document to persist.
// The input document is never modified.
func Apply(w WorkingWindow, day DayDocument, a Action) (Result, error) {
	day = day.Normalized()

	var start TimePoint
	if a.Kind.needsTime() {
		raw := strings.TrimSpace(a.Time)
		if raw == "" {
			return Result{}, validationError("time required")
		}
		t, err := ParseTime(raw)
		if err != nil {
			return Result{}, &ValidationError{msg: err.Error(), err: err}
		}
		start = t
	}

	switch a.Kind {
	case ActionBook:
		return book(w, day, start, a)
	case ActionCancel:
		return cancel(w, day, start)
	case ActionAdminBlock:
		return adminBlock(w, day, start, a.DurationMin)
	case ActionAdminUnblock:
		return adminUnblock(w, day, start, a.DurationMin)
	case ActionBlockDay:
		slots := w.Slots()
		day.Blocked = unionPoints(day.Blocked, slots)
		return Result{Day: day, Start: w.Open, DurationMin: w.Length(), Changed: slots}, nil
	case ActionUnblockDay:
		changed := day.Blocked
		return Result{Day: EmptyDay(), Start: w.Open, DurationMin: w.Length(), Changed: changed}, nil
	default:
		return Result{}, validationError(fmt.Sprintf("unknown action %q", a.Kind))
	}
}

func book(w WorkingWindow, day DayDocument, start TimePoint, a Action) (Result, error) {
	name := strings.TrimSpace(a.Name)
	phone := strings.TrimSpace(a.Phone)
	if name == "" || phone == "" {
		return Result{}, validationError("name & phone required")
	}

	duration := ClampDuration(a.DurationMin)
	if !w.IsStartValid(start, duration) {
		return Result{}, ErrOutOfRange
	}

	span := w.Span(start, duration)
	if intersects(span, pointSet(OccupiedSet(w, day))) {
		return Result{}, ErrConflict
	}

	b := Booking{
		ID:           a.BookingID,
		Time:         start,
		DurationMin:  duration,
		Name:         name,
		Phone:        phone,
		ServiceTitle: strings.TrimSpace(a.ServiceTitle),
		Price:        strings.TrimSpace(a.Price),
		CreatedAt:    a.CreatedAt,
	}
	day.Bookings = append(day.Bookings, b)
	day.Blocked = unionPoints(day.Blocked, span)

	return Result{Day: day, Start: start, DurationMin: duration, Booking: &b, Changed: span}, nil
}

func cancel(w WorkingWindow, day DayDocument, start TimePoint) (Result, error) {
	idx, ok := day.FindBooking(start)
	if !ok {
		return Result{}, ErrNotFound
	}
	removed := day.Bookings[idx]
	day.Bookings = append(day.Bookings[:idx:idx], day.Bookings[idx+1:]...)

	// The stored duration is authoritative; points still covered by another booking stay blocked.
	span := subtractPoints(w.Span(removed.Time, removed.Duration()), BookingPoints(w, day))
	day.Blocked = subtractPoints(day.Blocked, span)

	return Result{Day: day, Start: removed.Time, DurationMin: removed.Duration(), Booking: &removed, Changed: span}, nil
}

func adminBlock(w WorkingWindow, day DayDocument, start TimePoint, durationMin int) (Result, error) {
	duration := ClampDuration(durationMin)
	if !w.IsStartValid(start, duration) {
		return Result{}, ErrOutOfRange
	}

	span := w.Span(start, duration)
	if intersects(span, pointSet(OccupiedSet(w, day))) {
		return Result{}, ErrConflict
	}
	day.Blocked = unionPoints(day.Blocked, span)

	return Result{Day: day, Start: start, DurationMin: duration, Changed: span}, nil
}

// adminUnblock never fails. An explicit duration is clamped the same way admin-block clamps it.
// Without one, the inferred run counts only pure blocked points, so it stops at the first point a booking
// covers rather than at the end of the blocked run. Points covered by bookings are never released.
func adminUnblock(w WorkingWindow, day DayDocument, start TimePoint, durationMin int) (Result, error) {
	bookingPoints := BookingPoints(w, day)

	duration := durationMin
	if duration > 0 {
		duration = ClampDuration(duration)
	}
	if duration <= 0 {
		pure := pointSet(subtractPoints(day.Blocked, bookingPoints))
		n := 0
		for p := start; ; p += TimePoint(w.Step) {
			if _, ok := pure[p]; !ok {
				break
			}
			n++
		}
		if n == 0 {
			n = 1
		}
		duration = n * w.Step
	}

	release := subtractPoints(w.Span(start, duration), bookingPoints)
	before := len(day.Blocked)
	day.Blocked = subtractPoints(day.Blocked, release)

	var changed []TimePoint
	if len(day.Blocked) != before {
		changed = release
	}
	return Result{Day: day, Start: start, DurationMin: duration, Changed: changed}, nil
}
