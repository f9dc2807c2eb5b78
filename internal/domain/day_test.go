package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestDeriveAdminBlocks_SingleRun(t *testing.T) {
	day := DayDocument{Blocked: points("09:00", "09:15", "09:30")}

	got := DeriveAdminBlocks(DefaultWindow, day)
	want := []BlockInterval{{Time: MustParseTime("09:00"), DurationMin: 45}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeriveAdminBlocks = %v, want %v", got, want)
	}
}

func TestDeriveAdminBlocks_SubtractsBookingsAndSplitsRuns(t *testing.T) {
	day := DayDocument{
		// Unsorted and duplicated on purpose.
		Blocked: points("12:00", "09:00", "10:00", "10:15", "10:30", "09:15", "09:00", "15:00"),
		Bookings: []Booking{
			{Time: MustParseTime("10:00"), DurationMin: 45, Name: "a", Phone: "1"},
		},
	}

	got := DeriveAdminBlocks(DefaultWindow, day)
	want := []BlockInterval{
		{Time: MustParseTime("09:00"), DurationMin: 30},
		{Time: MustParseTime("12:00"), DurationMin: 15},
		{Time: MustParseTime("15:00"), DurationMin: 15},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DeriveAdminBlocks = %v, want %v", got, want)
	}
}

func TestDeriveAdminBlocks_Empty(t *testing.T) {
	got := DeriveAdminBlocks(DefaultWindow, EmptyDay())
	if got == nil || len(got) != 0 {
		t.Fatalf("DeriveAdminBlocks = %#v, want empty slice", got)
	}
}

func TestOccupiedSet_RecomputesBookingSpans(t *testing.T) {
	// Blocked lags behind the booking: the booking must still count as occupied.
	day := DayDocument{
		Blocked: points("08:00"),
		Bookings: []Booking{
			{Time: MustParseTime("11:00"), DurationMin: 30, Name: "a", Phone: "1"},
		},
	}

	got := OccupiedSet(DefaultWindow, day)
	want := points("08:00", "11:00", "11:15")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("OccupiedSet = %v, want %v", got, want)
	}

	missing := MissingBookingPoints(DefaultWindow, day)
	if !reflect.DeepEqual(missing, points("11:00", "11:15")) {
		t.Fatalf("MissingBookingPoints = %v", missing)
	}
}

func TestBooking_DurationFallsBackForLegacyRecords(t *testing.T) {
	var b Booking
	if err := json.Unmarshal([]byte(`{"time":"10:00","name":"a","phone":"1"}`), &b); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if b.Duration() != DefaultDuration {
		t.Fatalf("Duration() = %d, want %d", b.Duration(), DefaultDuration)
	}

	b.DurationMin = 90
	if b.Duration() != 90 {
		t.Fatalf("Duration() = %d, want 90", b.Duration())
	}
}

func TestDayDocument_JSONShape(t *testing.T) {
	pid := "pi_1"
	day := DayDocument{
		Blocked: points("10:00"),
		Bookings: []Booking{
			{Time: MustParseTime("10:00"), DurationMin: 15, Name: "Ann", Phone: "+380", Paid: true, PaymentID: &pid},
		},
	}
	raw, err := json.Marshal(day)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"blocked":["10:00"],"bookings":[{"time":"10:00","durationMin":15,"name":"Ann","phone":"+380","paid":true,"paymentId":"pi_1"}]}`
	if string(raw) != want {
		t.Fatalf("Marshal = %s\nwant      %s", raw, want)
	}

	raw, _ = json.Marshal(EmptyDay())
	if string(raw) != `{"blocked":[],"bookings":[]}` {
		t.Fatalf("empty day = %s", raw)
	}
}

func TestDayDocument_CloneIsDeep(t *testing.T) {
	pid := "p"
	day := DayDocument{Blocked: points("09:00"), Bookings: []Booking{{Time: 540, PaymentID: &pid}}}
	c := day.Clone()
	c.Blocked[0] = 600
	*c.Bookings[0].PaymentID = "changed"
	c.Bookings[0].Name = "x"

	if day.Blocked[0] != 540 || *day.Bookings[0].PaymentID != "p" || day.Bookings[0].Name != "" {
		t.Fatalf("Clone shares state with original: %+v", day)
	}
}

func TestDayDocument_BookingsByTime(t *testing.T) {
	day := DayDocument{Bookings: []Booking{
		{ID: "c", Time: MustParseTime("15:00")},
		{ID: "a", Time: MustParseTime("09:00")},
		{ID: "b", Time: MustParseTime("09:00")},
	}}

	got := day.BookingsByTime()
	var ids []string
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v, want [a b c]", ids)
	}
	if day.Bookings[0].ID != "c" {
		t.Fatalf("BookingsByTime reordered the document: %+v", day.Bookings)
	}
}

func TestBooking_CreatedAtJSON(t *testing.T) {
	at := time.Date(2026, 1, 5, 7, 45, 0, 0, time.UTC)
	raw, err := json.Marshal(Booking{Time: 600, DurationMin: 45, Name: "Ann", Phone: "1", CreatedAt: at})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var back Booking
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !back.CreatedAt.Equal(at) {
		t.Fatalf("CreatedAt = %v, want %v (json %s)", back.CreatedAt, at, raw)
	}
}

func TestFreeStarts(t *testing.T) {
	day := DayDocument{
		Blocked: points("08:00", "08:15", "08:30"),
		Bookings: []Booking{
			{Time: MustParseTime("08:00"), DurationMin: 45, Name: "a", Phone: "1"},
		},
	}
	got := FreeStarts(DefaultWindow, day, 45)
	if len(got) == 0 || got[0] != MustParseTime("08:45") {
		t.Fatalf("first free start = %v, want 08:45", got)
	}
	if last := got[len(got)-1]; last != MustParseTime("19:15") {
		t.Fatalf("last free start = %s, want 19:15", last)
	}
	if len(got) != 48-3-2 {
		t.Fatalf("len(free) = %d, want %d", len(got), 48-3-2)
	}
}

func TestValidateDate(t *testing.T) {
	for _, ok := range []string{"2026-01-05", "2024-02-29"} {
		if err := ValidateDate(ok); err != nil {
			t.Fatalf("ValidateDate(%q) error: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "2026-1-5", "2026-13-01", "2025-02-29", "20260105", "2026-01-05T00:00"} {
		if err := ValidateDate(bad); err == nil {
			t.Fatalf("ValidateDate(%q) expected error", bad)
		}
	}
}
