package domain

import (
	"encoding/json"
	"sort"
)

// DefaultCapacity is the number of points kept when no capacity is configured.
const DefaultCapacity = 100

// MergeResult reports which rule Series.Merge applied.
type MergeResult int

const (
	MergeAppended MergeResult = iota
	MergeRevised
	MergeStale
)

func (r MergeResult) String() string {
	switch r {
	case MergeAppended:
		return "appended"
	case MergeRevised:
		return "revised"
	case MergeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Series is an immutable, time-ordered window of price points.
//
// Points are unique by Time, strictly ascending, and at most Capacity long.
// The backing slice is never written after construction, so a Series value can
// be shared between goroutines without locking.
type Series struct {
	points   []PricePoint
	capacity int
}

// NewSeries builds a Series from arbitrary points: they are sorted by time,
// duplicates collapse to the last occurrence and only the newest capacity
// points are kept.
func NewSeries(capacity int, points ...PricePoint) Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if len(points) == 0 {
		return Series{capacity: capacity}
	}

	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	out := make([]PricePoint, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].Time == p.Time {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	if len(out) > capacity {
		out = out[len(out)-capacity:]
	}
	return Series{points: out, capacity: capacity}
}

func (s Series) Len() int { return len(s.points) }

func (s Series) Capacity() int {
	if s.capacity <= 0 {
		return DefaultCapacity
	}
	return s.capacity
}

// Points returns a copy of the points, oldest first.
func (s Series) Points() []PricePoint {
	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

func (s Series) First() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[0], true
}

func (s Series) Last() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// Equal reports structural equality of the points (capacity is ignored).
func (s Series) Equal(o Series) bool {
	if len(s.points) != len(o.points) {
		return false
	}
	for i := range s.points {
		if s.points[i] != o.points[i] {
			return false
		}
	}
	return true
}

// Merge folds one update into the series and returns the new series.
// The receiver is left untouched in every case.
//
//   - empty series or newer time: append, dropping the oldest points above capacity
//   - same time as the last point: replace that point's price
//   - older time: stale, the receiver is returned as is
//
// IsFinal does not take part in the decision.
func (s Series) Merge(u CanonicalUpdate) (Series, MergeResult) {
	capacity := s.Capacity()
	last, ok := s.Last()

	switch {
	case !ok || u.Time > last.Time:
		n := len(s.points) + 1
		start := 0
		if n > capacity {
			start = n - capacity
		}
		out := make([]PricePoint, 0, n-start)
		out = append(out, s.points[start:]...)
		out = append(out, PricePoint{Price: u.Price, Time: u.Time})
		return Series{points: out, capacity: capacity}, MergeAppended

	case u.Time == last.Time:
		out := make([]PricePoint, len(s.points))
		copy(out, s.points)
		out[len(out)-1].Price = u.Price
		return Series{points: out, capacity: capacity}, MergeRevised

	default:
		return s, MergeStale
	}
}

// MarshalJSON encodes the series as its ordered point array.
func (s Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Points())
}

// UnmarshalJSON decodes a point array; capacity falls back to the default
// unless the array is longer.
func (s *Series) UnmarshalJSON(b []byte) error {
	var pts []PricePoint
	if err := json.Unmarshal(b, &pts); err != nil {
		return err
	}
	capacity := DefaultCapacity
	if len(pts) > capacity {
		capacity = len(pts)
	}
	*s = NewSeries(capacity, pts...)
	return nil
}
