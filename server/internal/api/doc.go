// Package api implements the HTTP JSON API for the saferoute server.
//
// New(deps, opts) returns an http.Handler that serves:
//
//	POST /api/get_routes       three mock routes between the fixed demo points
//	POST /api/get_adjustment   {start, end, route_id} -> {adjustment}
//	POST /api/rate_route       {route_id, rating, start, end} -> {status: "ok"}
//	POST /api/analyze_safety   {route_id, features, safety_score} -> {analysis}
//	GET  /api/get_scores       per-route-variant base score and rating stats
//	GET  /api/alerts           firing and recently resolved route alerts
//	GET  /api/adjustments      every rated route key with its adjustment
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for the wrong method and 400 for malformed bodies or
//     missing start/end/route_id/rating
//   - Echo or assign an X-Request-ID header
//
// Ratings are coerced from numbers or numeric strings. Ratings outside 1..5
// count as a 5 unless the strict policy is set, in which case they are
// rejected with 400. Rating submissions may be rate limited per client.
package api
