package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/advisory"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/alerts"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/api"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/config"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/metrics"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/rating"
	"github.com/manasvi-chauhan/Shemovessafe1/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

type fixture struct {
	h       *api.Handler
	store   *store.Store
	ratings *store.Ratings
	alerts  *alerts.Engine
}

func newFixture(opts api.Options) *fixture {
	st := store.New(store.Bounds{})
	rs := store.NewRatings()
	eng := alerts.New(config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "unsafe-route", Condition: "score < 50", Severity: "critical", Cooldown: time.Minute},
	}}, nil)
	h := api.New(api.Deps{
		Store:   st,
		Ratings: rs,
		Alerts:  eng,
		Metrics: metrics.New(st.Count),
	}, opts)
	return &fixture{h: h, store: st, ratings: rs, alerts: eng}
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

func rate(t *testing.T, h http.Handler, start, end, routeID string, r interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"route_id": routeID, "rating": r, "start": start, "end": end,
	})
	return post(t, h, "/api/rate_route", string(body))
}

func adjustment(t *testing.T, h http.Handler, start, end, routeID string) int {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"start": start, "end": end, "route_id": routeID})
	rr := post(t, h, "/api/get_adjustment", string(body))
	if rr.Code != http.StatusOK {
		t.Fatalf("get_adjustment status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp api.AdjustmentResponse
	decode(t, rr, &resp)
	return resp.Adjustment
}

// --- /api/get_adjustment + /api/rate_route ----------------------------------

func TestAdjustment_UnknownKeyIsZero(t *testing.T) {
	f := newFixture(api.Options{})
	if got := adjustment(t, f.h, "Mumbai", "Andheri", "r_red"); got != 0 {
		t.Errorf("adjustment: got %d, want 0", got)
	}
}

func TestRate_TwoLowRatings(t *testing.T) {
	f := newFixture(api.Options{})
	for i := 0; i < 2; i++ {
		rr := rate(t, f.h, "Mumbai", "Andheri", "r_red", 1)
		if rr.Code != http.StatusOK {
			t.Fatalf("rate_route status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
		}
		var resp api.StatusResponse
		decode(t, rr, &resp)
		if resp.Status != "ok" {
			t.Errorf("status: got %q, want ok", resp.Status)
		}
	}
	if got := adjustment(t, f.h, "Mumbai", "Andheri", "r_red"); got != -20 {
		t.Errorf("adjustment: got %d, want -20", got)
	}
}

func TestRate_HighRatings(t *testing.T) {
	f := newFixture(api.Options{})
	rate(t, f.h, "Mumbai", "Andheri", "r_red", 4)
	rate(t, f.h, "Mumbai", "Andheri", "r_red", 5)
	if got := adjustment(t, f.h, "Mumbai", "Andheri", "r_red"); got != 8 {
		t.Errorf("adjustment: got %d, want 8", got)
	}
}

func TestRate_KeysIsolated(t *testing.T) {
	f := newFixture(api.Options{})
	rate(t, f.h, "Mumbai", "Andheri", "r_red", 2)

	if got := adjustment(t, f.h, "Mumbai", "Andheri", "r_green"); got != 0 {
		t.Errorf("other route: got %d, want 0", got)
	}
	if got := adjustment(t, f.h, "Mumbai", "Bandra", "r_red"); got != 0 {
		t.Errorf("other destination: got %d, want 0", got)
	}
	if got := adjustment(t, f.h, "Mumbai", "Andheri", "r_red"); got != -8 {
		t.Errorf("rated route: got %d, want -8", got)
	}
}

func TestRate_StringRatingCoerced(t *testing.T) {
	f := newFixture(api.Options{})
	rr := rate(t, f.h, "Mumbai", "Andheri", "r_yellow", "4")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if got := adjustment(t, f.h, "Mumbai", "Andheri", "r_yellow"); got != 3 {
		t.Errorf("adjustment: got %d, want 3", got)
	}
}

func TestRate_OutOfRange_Legacy(t *testing.T) {
	f := newFixture(api.Options{})
	for _, r := range []int{0, 6} {
		if rr := rate(t, f.h, "Mumbai", "Andheri", "r_green", r); rr.Code != http.StatusOK {
			t.Fatalf("rating %d: status got %d, want 200", r, rr.Code)
		}
	}
	if got := adjustment(t, f.h, "Mumbai", "Andheri", "r_green"); got != 10 {
		t.Errorf("adjustment: got %d, want 10 (each out-of-range rating counts +5)", got)
	}
}

func TestRate_OutOfRange_Strict(t *testing.T) {
	f := newFixture(api.Options{Policy: rating.Policy{Strict: true}})
	for _, r := range []int{0, 6} {
		rr := rate(t, f.h, "Mumbai", "Andheri", "r_green", r)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("rating %d: status got %d, want 400", r, rr.Code)
		}
	}
	if got := adjustment(t, f.h, "Mumbai", "Andheri", "r_green"); got != 0 {
		t.Errorf("adjustment: got %d, want 0", got)
	}
	if n := f.store.Count(); n != 0 {
		t.Errorf("store keys: got %d, want 0", n)
	}
}

func TestSetOptions_SwitchesPolicy(t *testing.T) {
	f := newFixture(api.Options{})
	f.h.SetOptions(api.Options{Policy: rating.Policy{Strict: true}})
	if rr := rate(t, f.h, "a", "b", "r_red", 9); rr.Code != http.StatusBadRequest {
		t.Errorf("status after switching to strict: got %d, want 400", rr.Code)
	}
}

func TestRate_MissingFields(t *testing.T) {
	f := newFixture(api.Options{})
	cases := map[string]string{
		"no start":    `{"route_id": "r_red", "rating": 1, "end": "Andheri"}`,
		"empty end":   `{"route_id": "r_red", "rating": 1, "start": "Mumbai", "end": ""}`,
		"no route_id": `{"rating": 1, "start": "Mumbai", "end": "Andheri"}`,
		"no rating":   `{"route_id": "r_red", "start": "Mumbai", "end": "Andheri"}`,
		"null rating": `{"route_id": "r_red", "rating": null, "start": "Mumbai", "end": "Andheri"}`,
		"bad rating":  `{"route_id": "r_red", "rating": "five", "start": "Mumbai", "end": "Andheri"}`,
		"not json":    `route_id=r_red`,
		"empty body":  ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := post(t, f.h, "/api/rate_route", body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rr.Code)
			}
			var resp map[string]string
			decode(t, rr, &resp)
			if resp["error"] == "" {
				t.Error("error message missing")
			}
		})
	}
	if n := f.store.Count(); n != 0 {
		t.Errorf("store keys after bad requests: got %d, want 0", n)
	}
}

func TestRate_MissingFieldNamed(t *testing.T) {
	f := newFixture(api.Options{})
	rr := post(t, f.h, "/api/rate_route", `{"route_id": "r_red", "rating": 1, "end": "Andheri"}`)
	var resp map[string]string
	decode(t, rr, &resp)
	if !strings.Contains(resp["error"], "start") {
		t.Errorf("error: got %q, want it to name start", resp["error"])
	}
}

func TestAdjustment_MissingFields(t *testing.T) {
	f := newFixture(api.Options{})
	rr := post(t, f.h, "/api/get_adjustment", `{"start": "Mumbai", "end": "Andheri"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestRate_RateLimited(t *testing.T) {
	f := newFixture(api.Options{RateLimit: 0.001, Burst: 2})
	for i := 0; i < 2; i++ {
		if rr := rate(t, f.h, "a", "b", "r_green", 5); rr.Code != http.StatusOK {
			t.Fatalf("submission %d: status got %d, want 200", i, rr.Code)
		}
	}
	if rr := rate(t, f.h, "a", "b", "r_green", 5); rr.Code != http.StatusTooManyRequests {
		t.Errorf("third submission: status got %d, want 429", rr.Code)
	}
	if got := adjustment(t, f.h, "a", "b", "r_green"); got != 10 {
		t.Errorf("adjustment: got %d, want 10", got)
	}
}

func TestRate_FiresAlert(t *testing.T) {
	f := newFixture(api.Options{})
	// r_red base 60: -10 then -10 -> 40, below the rule threshold of 50.
	rate(t, f.h, "Mumbai", "Andheri", "r_red", 1)
	rate(t, f.h, "Mumbai", "Andheri", "r_red", 1)
	f.alerts.Wait()

	rr := get(t, f.h, "/api/alerts")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []map[string]interface{}
	decode(t, rr, &resp)
	if len(resp) != 1 {
		t.Fatalf("alerts: got %d, want 1", len(resp))
	}
	if resp[0]["route_key"] != "Mumbai->Andheri:r_red" || resp[0]["state"] != "firing" {
		t.Errorf("alert: got %v", resp[0])
	}
}

func TestRate_MethodNotAllowed(t *testing.T) {
	f := newFixture(api.Options{})
	for _, path := range []string{"/api/rate_route", "/api/get_adjustment", "/api/get_routes", "/api/analyze_safety"} {
		if rr := get(t, f.h, path); rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: status got %d, want 405", path, rr.Code)
		}
	}
	if rr := post(t, f.h, "/api/get_scores", "{}"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/get_scores: status got %d, want 405", rr.Code)
	}
}

// --- /api/get_routes --------------------------------------------------------

func TestGetRoutes(t *testing.T) {
	f := newFixture(api.Options{})
	rr := post(t, f.h, "/api/get_routes", `{"start": "Mumbai", "end": "Andheri"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp struct {
		Routes []map[string]interface{} `json:"routes"`
	}
	decode(t, rr, &resp)
	if len(resp.Routes) != 3 {
		t.Fatalf("routes: got %d, want 3", len(resp.Routes))
	}
	r := resp.Routes[0]
	if r["id"] != "r_green" || r["safetyScore"].(float64) != 98 || r["level"] != "safe" {
		t.Errorf("first route: got %v", r)
	}
	poly := r["polylines"].(map[string]interface{})
	if poly["type"] != "LineString" {
		t.Errorf("polylines.type: got %v", poly["type"])
	}
	first := poly["coordinates"].([]interface{})[0].([]interface{})
	if first[0].(float64) != 72.8777 || first[1].(float64) != 19.0760 {
		t.Errorf("first coordinate: got %v, want [72.8777 19.076]", first)
	}
}

func TestGetRoutes_BodyIgnored(t *testing.T) {
	f := newFixture(api.Options{})
	if rr := post(t, f.h, "/api/get_routes", ""); rr.Code != http.StatusOK {
		t.Errorf("status with empty body: got %d, want 200", rr.Code)
	}
}

// --- /api/analyze_safety ----------------------------------------------------

func TestAnalyzeSafety_Simulation(t *testing.T) {
	f := newFixture(api.Options{})
	rr := post(t, f.h, "/api/analyze_safety", `{"route_id": "r_red", "features": ["dark alley"], "safety_score": 40}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp api.AnalyzeResponse
	decode(t, rr, &resp)
	if !strings.HasPrefix(resp.Analysis, "Gemini API Key missing. Simulation: Caution") {
		t.Errorf("analysis: got %q", resp.Analysis)
	}
}

type stubProvider struct{ text string }

func (s stubProvider) Generate(context.Context, string) (string, error) { return s.text, nil }

func TestAnalyzeSafety_Provider(t *testing.T) {
	st := store.New(store.Bounds{})
	h := api.New(api.Deps{
		Store:   st,
		Advisor: advisory.New(stubProvider{text: "Use the main road."}, true),
	}, api.Options{})

	rr := post(t, h, "/api/analyze_safety", `{"route_id": "r_green", "safety_score": 98}`)
	var resp api.AnalyzeResponse
	decode(t, rr, &resp)
	if resp.Analysis != "Use the main road." {
		t.Errorf("analysis: got %q", resp.Analysis)
	}
}

func TestAnalyzeSafety_MissingScore(t *testing.T) {
	f := newFixture(api.Options{})
	rr := post(t, f.h, "/api/analyze_safety", `{"route_id": "r_red", "features": []}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

// --- /api/get_scores --------------------------------------------------------

func TestGetScores(t *testing.T) {
	f := newFixture(api.Options{})
	rate(t, f.h, "Mumbai", "Andheri", "r_red", 1)
	rate(t, f.h, "Pune", "Bandra", "r_red", 4)
	rate(t, f.h, "Mumbai", "Andheri", "r_custom", 3)

	rr := get(t, f.h, "/api/get_scores")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.ScoresResponse
	decode(t, rr, &resp)

	if len(resp.Routes) != 4 {
		t.Fatalf("routes: got %d, want 4 (%+v)", len(resp.Routes), resp.Routes)
	}
	byID := map[string]api.RouteScore{}
	for _, r := range resp.Routes {
		byID[r.RouteID] = r
	}
	red := byID["r_red"]
	if red.BaseScore != 60 || red.Ratings != 2 || red.AverageRating != 2.5 {
		t.Errorf("r_red: got %+v", red)
	}
	if g := byID["r_green"]; g.Ratings != 0 || g.BaseScore != 98 {
		t.Errorf("r_green: got %+v", g)
	}
	if c := byID["r_custom"]; c.Ratings != 1 || c.BaseScore != 0 {
		t.Errorf("r_custom: got %+v", c)
	}
	if resp.GeneratedAt == "" {
		t.Error("generated_at missing")
	}
}

// --- misc -------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	f := newFixture(api.Options{})

	rr := get(t, f.h, "/api/get_scores")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not assigned")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/get_scores", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID: got %q, want abc-123", got)
	}
}

func TestUnknownAPIPath(t *testing.T) {
	f := newFixture(api.Options{})
	rr := get(t, f.h, "/api/nope")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
}

func TestRate_OnRatingHook(t *testing.T) {
	calls := 0
	h := api.New(api.Deps{
		Store:    store.New(store.Bounds{}),
		OnRating: func() { calls++ },
	}, api.Options{Policy: rating.Policy{Strict: true}})

	rate(t, h, "a", "b", "r_red", 3)
	rate(t, h, "a", "b", "r_red", 7) // rejected, no hook
	if calls != 1 {
		t.Errorf("OnRating calls: got %d, want 1", calls)
	}
}

func TestRate_TrailingDataRejected(t *testing.T) {
	f := newFixture(api.Options{})
	bodies := map[string]string{
		"second object": `{"route_id":"r_red","rating":1,"start":"a","end":"b"}{"x":1}`,
		"stray brace":   `{"route_id":"r_red","rating":1,"start":"a","end":"b"}}`,
		"stray word":    `{"route_id":"r_red","rating":1,"start":"a","end":"b"} junk`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rr := post(t, f.h, "/api/rate_route", body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rr.Code)
			}
		})
	}
	if got := adjustment(t, f.h, "a", "b", "r_red"); got != 0 {
		t.Errorf("adjustment after rejected bodies: got %d, want 0", got)
	}

	// Trailing whitespace is fine.
	rr := post(t, f.h, "/api/rate_route", `{"route_id":"r_red","rating":1,"start":"a","end":"b"}`+"\n  ")
	if rr.Code != http.StatusOK {
		t.Errorf("trailing whitespace: got %d, want 200", rr.Code)
	}
}

func TestListAdjustments(t *testing.T) {
	f := newFixture(api.Options{})
	rate(t, f.h, "Mumbai", "Andheri", "r_red", 1)
	rate(t, f.h, "Mumbai", "Andheri", "r_green", 5)

	rr := get(t, f.h, "/api/adjustments")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var entries []struct {
		RouteKey   string    `json:"route_key"`
		Adjustment int       `json:"adjustment"`
		UpdatedAt  time.Time `json:"updated_at"`
	}
	decode(t, rr, &entries)
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	if entries[0].RouteKey != "Mumbai->Andheri:r_green" || entries[0].Adjustment != 5 {
		t.Errorf("entries[0]: got %+v", entries[0])
	}
	if entries[1].RouteKey != "Mumbai->Andheri:r_red" || entries[1].Adjustment != -10 {
		t.Errorf("entries[1]: got %+v", entries[1])
	}
	if entries[1].UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}

	if rr := post(t, f.h, "/api/adjustments", "{}"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST: got %d, want 405", rr.Code)
	}
}
