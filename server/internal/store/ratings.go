package store

import (
	"sort"
	"sync"
)

// RatingStats summarises every rating submitted for one route variant,
// across all origin/destination pairs.
type RatingStats struct {
	RouteID string
	Count   int
	Sum     int
	Last    int
}

// Average returns the mean rating, or 0 when nothing has been submitted.
func (r RatingStats) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Sum) / float64(r.Count)
}

// Ratings is a thread-safe log of raw ratings grouped by route variant.
type Ratings struct {
	mu   sync.RWMutex
	data map[string]*RatingStats
}

// NewRatings creates an empty rating log.
func NewRatings() *Ratings {
	return &Ratings{data: make(map[string]*RatingStats)}
}

// Record adds one rating for routeID.
func (r *Ratings) Record(routeID string, rating int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.data[routeID]
	if !ok {
		st = &RatingStats{RouteID: routeID}
		r.data[routeID] = st
	}
	st.Count++
	st.Sum += rating
	st.Last = rating
}

// Get returns the stats for routeID; the zero value is returned if unseen.
func (r *Ratings) Get(routeID string) RatingStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if st, ok := r.data[routeID]; ok {
		return *st
	}
	return RatingStats{RouteID: routeID}
}

// List returns copies of every route variant's stats sorted by route ID.
func (r *Ratings) List() []RatingStats {
	r.mu.RLock()
	out := make([]RatingStats, 0, len(r.data))
	for _, st := range r.data {
		out = append(out, *st)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RouteID < out[j].RouteID })
	return out
}
