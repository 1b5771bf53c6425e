package metrics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names.
const (
	nameRatings      = "saferoute_ratings_total"
	nameRejected     = "saferoute_ratings_rejected_total"
	nameAdvisory     = "saferoute_advisory_requests_total"
	nameAlerts       = "saferoute_alerts_total"
	nameRouteKeys    = "saferoute_route_keys"
	nameSubscribers  = "saferoute_ws_subscribers"
	outOfRangeBucket = "out_of_range"
)

// Registry owns the server's collectors on a private prometheus.Registry,
// so tests and multiple servers in one process never collide.
type Registry struct {
	reg     *prometheus.Registry
	factory promauto.Factory
	handler http.Handler

	ratings  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	advisory *prometheus.CounterVec
	alerts   *prometheus.CounterVec
}

// New creates a Registry. The route key gauge calls keys on every scrape;
// keys may be nil, in which case the gauge reads 0.
func New(keys func() int) *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	r := &Registry{
		reg:     reg,
		factory: f,
		ratings: f.NewCounterVec(prometheus.CounterOpts{
			Name: nameRatings,
			Help: "Ratings applied to route adjustments.",
		}, []string{"rating"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: nameRejected,
			Help: "Rating submissions that were not applied.",
		}, []string{"reason"}),
		advisory: f.NewCounterVec(prometheus.CounterOpts{
			Name: nameAdvisory,
			Help: "Advisory responses by source.",
		}, []string{"source"}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Name: nameAlerts,
			Help: "Route safety alert transitions.",
		}, []string{"state"}),
	}
	r.gaugeFunc(nameRouteKeys, "Route keys with a community adjustment.", keys)

	r.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	})
	return r
}

// TrackSubscribers exposes count as the WebSocket subscriber gauge. Call it
// at most once per Registry.
func (r *Registry) TrackSubscribers(count func() int) {
	r.gaugeFunc(nameSubscribers, "Connected WebSocket score subscribers.", count)
}

func (r *Registry) gaugeFunc(name, help string, fn func() int) {
	r.factory.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
		if fn == nil {
			return 0
		}
		return float64(fn())
	})
}

// RatingAccepted counts one applied rating. Ratings outside 1..5 share one label.
func (r *Registry) RatingAccepted(rating int) {
	label := outOfRangeBucket
	if rating >= 1 && rating <= 5 {
		label = strconv.Itoa(rating)
	}
	r.ratings.WithLabelValues(label).Inc()
}

// RatingRejected counts one rating submission that was not applied.
func (r *Registry) RatingRejected(reason string) { r.rejected.WithLabelValues(reason).Inc() }

// Advisory counts one advisory response by source.
func (r *Registry) Advisory(source string) { r.advisory.WithLabelValues(source).Inc() }

// Alert counts one alert transition ("firing" or "resolved").
func (r *Registry) Alert(state string) { r.alerts.WithLabelValues(state).Inc() }

// ServeHTTP serves GET /metrics in whatever exposition format the scraper
// negotiates.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.handler.ServeHTTP(w, req)
}
