package notify

import (
	"context"
	"errors"
	"strings"

	"slotbook/internal/domain"
)

type Kind string

const (
	BookingCreated    Kind = "booking.created"
	BookingCanceled   Kind = "booking.canceled"
	IntervalBlocked   Kind = "interval.blocked"
	IntervalUnblocked Kind = "interval.unblocked"
	DayBlocked        Kind = "day.blocked"
	DayUnblocked      Kind = "day.unblocked"
)

// Event describes one applied mutation. Time and DurationMin are zero for whole-day events.
type Event struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	Date         string `json:"date"`
	Time         string `json:"time,omitempty"`
	DurationMin  int    `json:"durationMin,omitempty"`
	ServiceTitle string `json:"serviceTitle,omitempty"`
	Price        string `json:"price,omitempty"`
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// FormatMessage renders the operator-facing text for an event.
func FormatMessage(ev Event) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString("\n")
		b.WriteString(s)
	}

	switch ev.Kind {
	case BookingCreated:
		b.WriteString("🔔 NEW BOOKING")
		line("Date: " + ev.Date)
		line("Time: " + ev.Time + " (" + domain.FormatDuration(ev.DurationMin) + ")")
		line("Service: " + orDash(ev.ServiceTitle))
		line("Price: " + orDash(ev.Price))
		line("Name: " + ev.Name)
		line("Phone: " + ev.Phone)
	case BookingCanceled:
		b.WriteString("❌ BOOKING CANCELED by admin")
		line("Date: " + ev.Date)
		line("Time: " + ev.Time + " (" + domain.FormatDuration(ev.DurationMin) + ")")
		if ev.ServiceTitle != "" {
			line("Service: " + ev.ServiceTitle)
		}
		if ev.Price != "" {
			line("Price: " + ev.Price)
		}
		line("Name: " + ev.Name)
		line("Phone: " + ev.Phone)
	case IntervalBlocked:
		b.WriteString("⛔️ Interval blocked by admin")
		line("Date: " + ev.Date)
		line("Start: " + ev.Time + " (" + domain.FormatDuration(ev.DurationMin) + ")")
	case IntervalUnblocked:
		b.WriteString("✅ Interval unblocked by admin")
		line("Date: " + ev.Date)
		line("Start: " + ev.Time + " (" + domain.FormatDuration(ev.DurationMin) + ")")
	case DayBlocked:
		b.WriteString("⛔️ Day blocked by admin")
		line("Date: " + ev.Date)
	case DayUnblocked:
		b.WriteString("✅ Day unblocked by admin")
		line("Date: " + ev.Date)
	default:
		b.WriteString(string(ev.Kind))
		line("Date: " + ev.Date)
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
