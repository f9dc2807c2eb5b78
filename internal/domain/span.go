package domain

import "sort"

// Span returns the points a service starting at start occupies. The exact start is kept even when it
// is off-grid so lookups by start time still match; every grid cell the service overlaps follows.
func (w WorkingWindow) Span(start TimePoint, duration int) []TimePoint {
	end := start + TimePoint(duration)
	if end > w.Close {
		end = w.Close
	}

	out := make([]TimePoint, 0, duration/w.Step+2)
	if w.Contains(start) {
		out = append(out, start)
	}
	for t := ceilToStep(start, w.Step); t < end; t += TimePoint(w.Step) {
		if t == start || !w.Contains(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Slots lists every grid point of the window, the candidate starts offered to clients.
func (w WorkingWindow) Slots() []TimePoint {
	out := make([]TimePoint, 0, w.Length()/w.Step)
	for t := w.Open; t < w.Close; t += TimePoint(w.Step) {
		out = append(out, t)
	}
	return out
}

// IsStartValid reports whether a service of the given length starts inside the window and ends by closing.
func (w WorkingWindow) IsStartValid(start TimePoint, duration int) bool {
	return w.Contains(start) && start+TimePoint(duration) <= w.Close
}

// ClampDuration applies the accepted duration range. Zero means the caller sent none.
// Out-of-range values are clamped rather than rejected.
func ClampDuration(minutes int) int {
	if minutes == 0 {
		minutes = DefaultDuration
	}
	if minutes < MinDuration {
		return MinDuration
	}
	if minutes > MaxDuration {
		return MaxDuration
	}
	return minutes
}

func ceilToStep(t TimePoint, step int) TimePoint {
	if t <= 0 {
		return 0
	}
	s := TimePoint(step)
	return ((t + s - 1) / s) * s
}

func normalizePoints(points []TimePoint) []TimePoint {
	if len(points) == 0 {
		return []TimePoint{}
	}
	seen := make(map[TimePoint]struct{}, len(points))
	out := make([]TimePoint, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func unionPoints(a []TimePoint, more ...[]TimePoint) []TimePoint {
	all := append([]TimePoint{}, a...)
	for _, m := range more {
		all = append(all, m...)
	}
	return normalizePoints(all)
}

func subtractPoints(from, remove []TimePoint) []TimePoint {
	drop := pointSet(remove)
	out := make([]TimePoint, 0, len(from))
	for _, p := range from {
		if _, ok := drop[p]; ok {
			continue
		}
		out = append(out, p)
	}
	return normalizePoints(out)
}

func pointSet(points []TimePoint) map[TimePoint]struct{} {
	set := make(map[TimePoint]struct{}, len(points))
	for _, p := range points {
		set[p] = struct{}{}
	}
	return set
}

func intersects(points []TimePoint, set map[TimePoint]struct{}) bool {
	for _, p := range points {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}
