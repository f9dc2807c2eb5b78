package store

import (
	"context"

	"slotbook/internal/domain"
)

// UpdateFunc turns the current document of a date into the one to persist. A missing date is passed in
// as an empty day. Returning an error aborts the write.
type UpdateFunc func(day domain.DayDocument) (domain.DayDocument, error)

// DayStore keeps one document per YYYY-MM-DD key.
type DayStore interface {
	// Get returns ErrNotFound when nothing was ever stored for date.
	Get(ctx context.Context, date string) (domain.DayDocument, error)
	// Update is a read-modify-write of one date, serialized per date as far as the backend allows.
	// A lost optimistic race is reported as ErrConflict.
	Update(ctx context.Context, date string, fn UpdateFunc) error
	// ListDates returns stored keys within [start, end] in ascending order.
	ListDates(ctx context.Context, start, end string) ([]string, error)
	Ping(ctx context.Context) error
}
