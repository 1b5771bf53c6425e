package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/advisory"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/alerts"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/metrics"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/rating"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/routes"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/store"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Deps are the components the API reads and writes. Only Store is required.
type Deps struct {
	Store   *store.Store
	Ratings *store.Ratings
	Advisor *advisory.Advisor
	Alerts  *alerts.Engine
	Metrics *metrics.Registry

	// OnRating is called after every applied rating.
	OnRating func()
}

// Options are the runtime-adjustable API settings.
type Options struct {
	Policy    rating.Policy
	RateLimit float64 // rating submissions per second per client; 0 disables
	Burst     int
}

// Handler is the HTTP handler for all /api/* endpoints.
type Handler struct {
	deps     Deps
	limiter  *clientLimiter
	validate *validator.Validate
	mux      *http.ServeMux
	root     http.Handler

	mu     sync.RWMutex
	policy rating.Policy
}

// New creates a Handler wired to deps and registers all routes.
func New(deps Deps, opts Options) *Handler {
	if deps.Ratings == nil {
		deps.Ratings = store.NewRatings()
	}
	if deps.Advisor == nil {
		deps.Advisor = advisory.New(nil, false)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(nil)
	}

	h := &Handler{
		deps:     deps,
		limiter:  newClientLimiter(opts.RateLimit, opts.Burst),
		validate: newValidator(),
		mux:      http.NewServeMux(),
		policy:   opts.Policy,
	}

	h.mux.HandleFunc("/api/get_routes", h.getRoutes)
	h.mux.HandleFunc("/api/get_adjustment", h.getAdjustment)
	h.mux.HandleFunc("/api/rate_route", h.rateRoute)
	h.mux.HandleFunc("/api/analyze_safety", h.analyzeSafety)
	h.mux.HandleFunc("/api/get_scores", h.getScores)
	h.mux.HandleFunc("/api/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/adjustments", h.listAdjustments)
	h.mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})

	h.root = withRequestID(h.mux)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

// SetOptions swaps the rating policy and rate limit, e.g. after a config
// reload. Changing the rate limit resets every client's bucket.
func (h *Handler) SetOptions(opts Options) {
	h.mu.Lock()
	h.policy = opts.Policy
	h.mu.Unlock()
	h.limiter.set(opts.RateLimit, opts.Burst)
}

func (h *Handler) currentPolicy() rating.Policy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.policy
}

// --- route handlers ---------------------------------------------------------

// getRoutes returns POST /api/get_routes. The request body is ignored; routes
// are always generated between the fixed demo locations.
func (h *Handler) getRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, map[string][]routes.Route{
		"routes": routes.Generate(routes.Locations.Start, routes.Locations.End),
	})
}

// getAdjustment returns POST /api/get_adjustment, the community adjustment for
// one (start, end, route_id) triple, or 0 if it was never rated.
func (h *Handler) getAdjustment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AdjustmentRequest
	if !h.decode(w, r, &req) {
		return
	}
	key, err := store.Key(req.Start, req.End, req.RouteID)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, AdjustmentResponse{Adjustment: h.deps.Store.Get(key)})
}

// rateRoute handles POST /api/rate_route: resolves the rating to a delta and
// applies it to the route's adjustment.
func (h *Handler) rateRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !h.limiter.allow(r) {
		h.deps.Metrics.RatingRejected("rate_limited")
		jsonErr(w, http.StatusTooManyRequests, "too many ratings, slow down")
		return
	}

	var req RateRequest
	if !h.decode(w, r, &req) {
		h.deps.Metrics.RatingRejected("invalid")
		return
	}
	key, err := store.Key(req.Start, req.End, req.RouteID)
	if err != nil {
		h.deps.Metrics.RatingRejected("invalid")
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	value := int(*req.Rating)
	delta, err := h.currentPolicy().Resolve(value)
	if err != nil {
		h.deps.Metrics.RatingRejected("out_of_range")
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if !rating.InRange(value) {
		slog.Warn("api: rating outside 1..5 counted as 5",
			"route_key", key, "rating", value, "delta", delta)
	}

	adj := h.deps.Store.Apply(key, delta)
	h.deps.Ratings.Record(req.RouteID, value)
	h.deps.Metrics.RatingAccepted(value)

	if rating.IsConcern(value) {
		slog.Warn("api: safety concern recorded",
			"route_key", key, "rating", value, "adjustment", adj)
	} else {
		slog.Info("api: rating recorded",
			"route_key", key, "rating", value, "adjustment", adj)
	}

	h.evaluateAlerts(key, req.RouteID, adj)
	if h.deps.OnRating != nil {
		h.deps.OnRating()
	}
	jsonResp(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// analyzeSafety returns POST /api/analyze_safety, a short safety note.
func (h *Handler) analyzeSafety(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	res := h.deps.Advisor.Analyze(r.Context(), advisory.Request{
		RouteID:     req.RouteID,
		Features:    req.Features,
		SafetyScore: *req.SafetyScore,
	})
	h.deps.Metrics.Advisory(res.Source)
	jsonResp(w, http.StatusOK, AnalyzeResponse{Analysis: res.Analysis})
}

// getScores returns GET /api/get_scores.
func (h *Handler) getScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildScores(h.deps.Ratings))
}

// listAlerts returns GET /api/alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.deps.Alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Alerts.Active())
}

// listAdjustments returns GET /api/adjustments, every route key that has
// been rated with its current adjustment.
func (h *Handler) listAdjustments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Store.List())
}

// --- helpers ----------------------------------------------------------------

// BuildScores assembles the scores payload from the rating log. Every known
// route variant is listed, rated or not, followed by any other route IDs
// that have received ratings.
func BuildScores(rs *store.Ratings) ScoresResponse {
	out := ScoresResponse{
		Routes:      make([]RouteScore, 0, len(routes.IDs())),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	seen := make(map[string]bool)
	for _, id := range routes.IDs() {
		out.Routes = append(out.Routes, toRouteScore(rs.Get(id)))
		seen[id] = true
	}
	for _, st := range rs.List() {
		if !seen[st.RouteID] {
			out.Routes = append(out.Routes, toRouteScore(st))
		}
	}
	return out
}

func toRouteScore(st store.RatingStats) RouteScore {
	base, _ := routes.BaseScore(st.RouteID)
	return RouteScore{
		RouteID:       st.RouteID,
		BaseScore:     base,
		Level:         routes.Level(float64(base)),
		Ratings:       st.Count,
		AverageRating: st.Average(),
		LastRating:    st.Last,
	}
}

// evaluateAlerts runs the alert rules for a route key after its adjustment
// changed. Route IDs without a base score are skipped.
func (h *Handler) evaluateAlerts(key, routeID string, adj int) {
	if h.deps.Alerts == nil {
		return
	}
	base, ok := routes.BaseScore(routeID)
	if !ok {
		slog.Debug("api: no base score, skipping alert rules", "route_id", routeID)
		return
	}
	score := routes.AdjustedScore(base, adj)
	h.deps.Alerts.Evaluate(alerts.RouteState{
		Key:        key,
		RouteID:    routeID,
		Adjustment: adj,
		Score:      score,
		Level:      routes.Level(float64(score)),
		Ratings:    h.deps.Ratings.Get(routeID).Count,
	})
}

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body: "+decodeMessage(err))
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		jsonErr(w, http.StatusBadRequest, "invalid request body: unexpected data after JSON object")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		jsonErr(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.Is(err, rating.ErrNotNumeric):
		return "rating must be a number"
	default:
		return err.Error()
	}
}

// validationMessage turns validator errors into "missing required field: a, b".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "missing required field: " + strings.Join(fields, ", ")
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
