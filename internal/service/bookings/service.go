package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slotbook/internal/auth"
	"slotbook/internal/domain"
	"slotbook/internal/notify"
	"slotbook/internal/store"
)

var ErrUnauthorized = auth.ErrUnauthorized

type Authorizer interface {
	IsAdmin(c auth.Credential) bool
}

type Config struct {
	Window        domain.WorkingWindow
	NotifyTimeout time.Duration
}

type Service struct {
	days          store.DayStore
	authz         Authorizer
	notifier      notify.Notifier
	log           *zap.Logger
	window        domain.WorkingWindow
	notifyTimeout time.Duration
	newID         func() string
	now           func() time.Time
}

func NewService(days store.DayStore, authz Authorizer, notifier notify.Notifier, log *zap.Logger, cfg Config) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Window.Step == 0 {
		cfg.Window = domain.DefaultWindow
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	return &Service{
		days:          days,
		authz:         authz,
		notifier:      notifier,
		log:           log.With(zap.String("component", "bookings")),
		window:        cfg.Window,
		notifyTimeout: cfg.NotifyTimeout,
		newID:         newBookingID,
		now:           time.Now,
	}
}

func newBookingID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Service) Window() domain.WorkingWindow {
	return s.window
}

func (s *Service) IsAdmin(c auth.Credential) bool {
	return s.authz != nil && s.authz.IsAdmin(c)
}

// Ready reports whether the backing store answers.
func (s *Service) Ready(ctx context.Context) error {
	return s.days.Ping(ctx)
}

// LoadDay returns the stored day, or an empty one when nothing was ever written for the date.
func (s *Service) LoadDay(ctx context.Context, date string) (domain.DayDocument, error) {
	if err := validateDate(date); err != nil {
		return domain.DayDocument{}, err
	}
	day, err := s.days.Get(ctx, date)
	if errors.Is(err, store.ErrNotFound) {
		return domain.EmptyDay(), nil
	}
	if err != nil {
		return domain.DayDocument{}, fmt.Errorf("load day %s: %w", date, err)
	}
	s.checkConsistency(date, day)
	return day, nil
}

func (s *Service) checkConsistency(date string, day domain.DayDocument) {
	if missing := domain.MissingBookingPoints(s.window, day); len(missing) > 0 {
		s.log.Warn("stored blocked set misses booking points",
			zap.String("date", date),
			zap.Int("missing", len(missing)),
		)
	}
}

// PublicBooking is what anonymous callers learn about a booking.
type PublicBooking struct {
	Time        domain.TimePoint `json:"time"`
	DurationMin int              `json:"durationMin"`
}

// Availability holds either full bookings (admin) or their redacted form, never both.
type Availability struct {
	Blocked  []domain.TimePoint
	Bookings []domain.Booking
	Public   []PublicBooking
	Redacted bool
}

func (a Availability) MarshalJSON() ([]byte, error) {
	blocked := a.Blocked
	if blocked == nil {
		blocked = []domain.TimePoint{}
	}
	if a.Redacted {
		public := a.Public
		if public == nil {
			public = []PublicBooking{}
		}
		return json.Marshal(struct {
			Blocked  []domain.TimePoint `json:"blocked"`
			Bookings []PublicBooking    `json:"bookings"`
		}{blocked, public})
	}
	bookings := a.Bookings
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return json.Marshal(struct {
		Blocked  []domain.TimePoint `json:"blocked"`
		Bookings []domain.Booking   `json:"bookings"`
	}{blocked, bookings})
}

// Availability returns the occupied set for a date. Blocked is always recomputed from the bookings.
func (s *Service) Availability(ctx context.Context, date string, cred auth.Credential) (Availability, error) {
	day, err := s.LoadDay(ctx, date)
	if err != nil {
		return Availability{}, err
	}

	bookings := day.BookingsByTime()
	out := Availability{Blocked: domain.OccupiedSet(s.window, day)}
	if s.IsAdmin(cred) {
		out.Bookings = bookings
		return out, nil
	}

	out.Redacted = true
	out.Public = make([]PublicBooking, 0, len(bookings))
	for _, b := range bookings {
		out.Public = append(out.Public, PublicBooking{Time: b.Time, DurationMin: b.Duration()})
	}
	return out, nil
}

// FreeSlots lists starts where a service of durationMin fits. Zero means the default service length.
func (s *Service) FreeSlots(ctx context.Context, date string, durationMin int) ([]domain.TimePoint, error) {
	day, err := s.LoadDay(ctx, date)
	if err != nil {
		return nil, err
	}
	return domain.FreeStarts(s.window, day, domain.ClampDuration(durationMin)), nil
}

// ListRange returns admin rows for every stored day in [start, end], filtered by query.
func (s *Service) ListRange(ctx context.Context, start, end string, cred auth.Credential, query string) ([]domain.Row, error) {
	if !s.IsAdmin(cred) {
		return nil, ErrUnauthorized
	}
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, domain.NewValidationError("start & end (YYYY-MM-DD) required")
	}
	if err := domain.ValidateDate(start); err != nil {
		return nil, err
	}
	if err := domain.ValidateDate(end); err != nil {
		return nil, err
	}
	if end < start {
		return nil, domain.NewValidationError("end must not be before start")
	}

	dates, err := s.days.ListDates(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}

	rows := []domain.Row{}
	for _, date := range dates {
		if domain.ValidateDate(date) != nil {
			continue
		}
		day, err := s.days.Get(ctx, date)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load day %s: %w", date, err)
		}
		rows = append(rows, domain.DayRows(s.window, date, day)...)
	}
	domain.SortRows(rows)
	return domain.FilterRows(rows, query), nil
}

// Mutate applies one action to a date under the store's per-date serialization.
func (s *Service) Mutate(ctx context.Context, date string, a domain.Action, cred auth.Credential) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if a.Kind == "" {
		a.Kind = domain.ActionBook
	}
	if a.Kind.RequiresAdmin() && !s.IsAdmin(cred) {
		return ErrUnauthorized
	}
	if a.Kind == domain.ActionBook {
		if a.BookingID == "" {
			a.BookingID = s.newID()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = s.now().UTC().Truncate(time.Second)
		}
	}

	var res domain.Result
	err := s.days.Update(ctx, date, func(day domain.DayDocument) (domain.DayDocument, error) {
		s.checkConsistency(date, day)
		r, err := domain.Apply(s.window, day, a)
		if err != nil {
			return domain.DayDocument{}, err
		}
		res = r
		return r.Day, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.ErrConflict
		}
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("update day %s: %w", date, err)
	}

	s.log.Info("day updated",
		zap.String("date", date),
		zap.String("action", string(a.Kind)),
		zap.String("start", res.Start.String()),
		zap.Int("duration_min", res.DurationMin),
		zap.Int("changed", len(res.Changed)),
	)

	if ev, ok := s.event(date, a.Kind, res); ok {
		s.notify(ctx, ev)
	}
	return nil
}

func (s *Service) event(date string, kind domain.ActionKind, res domain.Result) (notify.Event, bool) {
	ev := notify.Event{ID: uuid.NewString(), Date: date}
	switch kind {
	case domain.ActionBook, domain.ActionCancel:
		ev.Kind = notify.BookingCreated
		if kind == domain.ActionCancel {
			ev.Kind = notify.BookingCanceled
		}
		if res.Booking == nil {
			return notify.Event{}, false
		}
		b := res.Booking
		ev.Time = b.Time.String()
		ev.DurationMin = b.Duration()
		ev.ServiceTitle = b.ServiceTitle
		ev.Price = b.Price
		ev.Name = b.Name
		ev.Phone = b.Phone
	case domain.ActionAdminBlock, domain.ActionAdminUnblock:
		if len(res.Changed) == 0 {
			return notify.Event{}, false
		}
		ev.Kind = notify.IntervalBlocked
		if kind == domain.ActionAdminUnblock {
			ev.Kind = notify.IntervalUnblocked
		}
		ev.Time = res.Start.String()
		ev.DurationMin = res.DurationMin
	case domain.ActionBlockDay:
		ev.Kind = notify.DayBlocked
	case domain.ActionUnblockDay:
		ev.Kind = notify.DayUnblocked
	default:
		return notify.Event{}, false
	}
	return ev, true
}

// notify never fails the caller; the request context is detached so a hung-up client does not drop the message.
func (s *Service) notify(ctx context.Context, ev notify.Event) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(nctx, ev); err != nil {
		s.log.Warn("notification failed",
			zap.String("event_id", ev.ID),
			zap.String("kind", string(ev.Kind)),
			zap.String("date", ev.Date),
			zap.Error(err),
		)
	}
}

func validateDate(date string) error {
	if strings.TrimSpace(date) == "" {
		return domain.NewValidationError("date required")
	}
	return domain.ValidateDate(date)
}

func isDomainError(err error) bool {
	var vErr *domain.ValidationError
	return errors.As(err, &vErr) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrOutOfRange)
}
