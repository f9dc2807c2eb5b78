package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	GridStep        = 15
	DefaultDuration = 45
	MinDuration     = 5
	MaxDuration     = 8 * 60

	minutesPerDay = 24 * 60
)

// TimePoint is a clock time expressed as minutes since local midnight.
type TimePoint int

func ParseTime(s string) (TimePoint, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || !isDigits(hs) || !isDigits(ms) || len(hs) > 2 || len(ms) != 2 {
		return 0, &FormatError{Value: s}
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, &FormatError{Value: s}
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, &FormatError{Value: s}
	}
	if h > 23 || m > 59 {
		return 0, &FormatError{Value: s}
	}
	return TimePoint(h*60 + m), nil
}

func MustParseTime(s string) TimePoint {
	p, err := ParseTime(s)
	if err != nil {
		panic(err)
	}
	return p
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (p TimePoint) String() string {
	if p < 0 || p >= minutesPerDay {
		return fmt.Sprintf("invalid(%d)", int(p))
	}
	return fmt.Sprintf("%02d:%02d", int(p)/60, int(p)%60)
}

func (p TimePoint) MarshalJSON() ([]byte, error) {
	if p < 0 || p >= minutesPerDay {
		return nil, fmt.Errorf("time point %d out of day range", int(p))
	}
	return json.Marshal(p.String())
}

func (p *TimePoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// WorkingWindow bounds every schedulable point of a day: [Open, Close).
type WorkingWindow struct {
	Open  TimePoint
	Close TimePoint
	Step  int
}

var DefaultWindow = WorkingWindow{Open: 8 * 60, Close: 20 * 60, Step: GridStep}

func NewWorkingWindow(open, close TimePoint, step int) (WorkingWindow, error) {
	if step <= 0 {
		return WorkingWindow{}, errors.New("grid step must be positive")
	}
	if open < 0 || close > minutesPerDay {
		return WorkingWindow{}, errors.New("working window must lie within one day")
	}
	if open >= close {
		return WorkingWindow{}, errors.New("working window open must be before close")
	}
	if int(open)%step != 0 || int(close)%step != 0 {
		return WorkingWindow{}, fmt.Errorf("working window bounds must be multiples of %d minutes", step)
	}
	return WorkingWindow{Open: open, Close: close, Step: step}, nil
}

func (w WorkingWindow) Contains(p TimePoint) bool {
	return p >= w.Open && p < w.Close
}

func (w WorkingWindow) Length() int {
	return int(w.Close - w.Open)
}

// FormatDuration renders minutes the way operators read them: "45m", "1h", "1h 30m".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}
