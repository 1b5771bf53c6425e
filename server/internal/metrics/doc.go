// Package metrics counts rating, advisory and alert activity with
// prometheus/client_golang collectors and serves them at GET /metrics.
//
// Exported series:
//
//	saferoute_ratings_total{rating}            applied ratings, 1..5 or out_of_range
//	saferoute_ratings_rejected_total{reason}   submissions that were not applied
//	saferoute_advisory_requests_total{source}  simulation | disabled | provider | fallback
//	saferoute_alerts_total{state}              firing | resolved
//	saferoute_route_keys                       route keys holding an adjustment
//	saferoute_ws_subscribers                   connected score stream clients
package metrics
