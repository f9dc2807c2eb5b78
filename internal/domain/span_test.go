package domain

import (
	"reflect"
	"testing"
)

func points(ss ...string) []TimePoint {
	out := make([]TimePoint, 0, len(ss))
	for _, s := range ss {
		out = append(out, MustParseTime(s))
	}
	return out
}

func TestSpan(t *testing.T) {
	w := DefaultWindow

	tests := []struct {
		name     string
		start    string
		duration int
		want     []TimePoint
	}{
		{name: "default service", start: "10:00", duration: 45, want: points("10:00", "10:15", "10:30")},
		{name: "off grid start keeps exact start", start: "10:05", duration: 30, want: points("10:05", "10:15", "10:30")},
		{name: "clipped at close", start: "19:30", duration: 60, want: points("19:30", "19:45")},
		{name: "before open", start: "07:30", duration: 60, want: points("08:00", "08:15")},
		{name: "after close", start: "20:00", duration: 30, want: []TimePoint{}},
		{name: "short service covers its cell", start: "09:00", duration: 5, want: points("09:00")},
		{name: "ninety minutes", start: "12:00", duration: 90, want: points("12:00", "12:15", "12:30", "12:45", "13:00", "13:15")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := w.Span(MustParseTime(tt.start), tt.duration)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Span(%s, %d) = %v, want %v", tt.start, tt.duration, got, tt.want)
			}
		})
	}
}

func TestSpan_Bounds(t *testing.T) {
	w := DefaultWindow
	for start := w.Open; start < w.Close; start += 5 {
		for _, d := range []int{5, 15, 20, 45, 60, 90, 480} {
			span := w.Span(start, d)
			if len(span) == 0 || span[0] != start {
				t.Fatalf("Span(%s, %d) = %v, must start with %s", start, d, span, start)
			}
			limit := start + TimePoint(d)
			if limit > w.Close {
				limit = w.Close
			}
			for i, p := range span {
				if p >= limit || p < w.Open {
					t.Fatalf("Span(%s, %d) contains %s outside [%s, %s)", start, d, p, w.Open, limit)
				}
				if i > 0 && span[i-1] >= p {
					t.Fatalf("Span(%s, %d) not ascending: %v", start, d, span)
				}
			}
		}
	}
}

func TestSlots(t *testing.T) {
	slots := DefaultWindow.Slots()
	if len(slots) != 48 {
		t.Fatalf("len(slots) = %d, want 48", len(slots))
	}
	if slots[0] != MustParseTime("08:00") || slots[len(slots)-1] != MustParseTime("19:45") {
		t.Fatalf("slots = %s..%s", slots[0], slots[len(slots)-1])
	}
}

func TestIsStartValid(t *testing.T) {
	w := DefaultWindow
	tests := []struct {
		start    string
		duration int
		want     bool
	}{
		{start: "08:00", duration: 45, want: true},
		{start: "19:15", duration: 45, want: true},
		{start: "19:30", duration: 45, want: false},
		{start: "07:45", duration: 15, want: false},
		{start: "20:00", duration: 5, want: false},
		{start: "12:00", duration: 480, want: true},
		{start: "12:15", duration: 480, want: false},
	}
	for _, tt := range tests {
		if got := w.IsStartValid(MustParseTime(tt.start), tt.duration); got != tt.want {
			t.Fatalf("IsStartValid(%s, %d) = %v, want %v", tt.start, tt.duration, got, tt.want)
		}
	}
}

func TestClampDuration(t *testing.T) {
	tests := map[int]int{0: 45, 1: 5, -30: 5, 5: 5, 90: 90, 480: 480, 1000: 480}
	for in, want := range tests {
		if got := ClampDuration(in); got != want {
			t.Fatalf("ClampDuration(%d) = %d, want %d", in, got, want)
		}
	}
}
