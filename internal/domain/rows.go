package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Row is one line of the admin list: a booking, or a pure admin block when IsBlock is set.
type Row struct {
	Date         string    `json:"date"`
	Time         TimePoint `json:"time"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Paid         bool      `json:"paid"`
	PaymentID    string    `json:"paymentId"`
	ServiceTitle string    `json:"serviceTitle"`
	Price        string    `json:"price"`
	DurationMin  int       `json:"durationMin"`
	IsBlock      bool      `json:"isBlock"`
}

// Status is the export label: blocked, paid or booked.
func (r Row) Status() string {
	switch {
	case r.IsBlock:
		return "blocked"
	case r.Paid:
		return "paid"
	default:
		return "booked"
	}
}

// DayRows emits one row per booking and one per derived admin block, sorted by time.
func DayRows(w WorkingWindow, date string, d DayDocument) []Row {
	rows := make([]Row, 0, len(d.Bookings))
	for _, b := range d.Bookings {
		row := Row{
			Date:         date,
			Time:         b.Time,
			Name:         b.Name,
			Phone:        b.Phone,
			Paid:         b.Paid,
			ServiceTitle: b.ServiceTitle,
			Price:        b.Price,
			DurationMin:  b.Duration(),
		}
		if b.PaymentID != nil {
			row.PaymentID = *b.PaymentID
		}
		rows = append(rows, row)
	}
	for _, blk := range DeriveAdminBlocks(w, d) {
		rows = append(rows, Row{Date: date, Time: blk.Time, DurationMin: blk.DurationMin, IsBlock: true})
	}
	SortRows(rows)
	return rows
}

func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Time < rows[j].Time
	})
}

// Matches reports whether the case-insensitive term occurs in any searchable column.
// Duration matches both as a number and as its "1h 30m" rendering.
func (r Row) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	fields := []string{
		r.Name,
		r.Phone,
		r.Date,
		r.Time.String(),
		r.ServiceTitle,
		strconv.Itoa(r.DurationMin),
		FormatDuration(r.DurationMin),
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func FilterRows(rows []Row, term string) []Row {
	if strings.TrimSpace(term) == "" {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Matches(term) {
			out = append(out, r)
		}
	}
	return out
}
