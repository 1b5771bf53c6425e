package api

import "github.com/manasvi-chauhan/Shemovessafe1/server/internal/rating"

// AdjustmentRequest is the body of POST /api/get_adjustment.
type AdjustmentRequest struct {
	Start   string `json:"start" validate:"required"`
	End     string `json:"end" validate:"required"`
	RouteID string `json:"route_id" validate:"required"`
}

// AdjustmentResponse is the payload for POST /api/get_adjustment.
type AdjustmentResponse struct {
	Adjustment int `json:"adjustment"`
}

// RateRequest is the body of POST /api/rate_route.
type RateRequest struct {
	RouteID string        `json:"route_id" validate:"required"`
	Rating  *rating.Value `json:"rating" validate:"required"`
	Start   string        `json:"start" validate:"required"`
	End     string        `json:"end" validate:"required"`
}

// StatusResponse is the payload for POST /api/rate_route.
type StatusResponse struct {
	Status string `json:"status"`
}

// AnalyzeRequest is the body of POST /api/analyze_safety.
type AnalyzeRequest struct {
	RouteID     string   `json:"route_id"`
	Features    []string `json:"features"`
	SafetyScore *float64 `json:"safety_score" validate:"required"`
}

// AnalyzeResponse is the payload for POST /api/analyze_safety.
type AnalyzeResponse struct {
	Analysis string `json:"analysis"`
}

// RouteScore is one route variant in GET /api/get_scores.
type RouteScore struct {
	RouteID       string  `json:"route_id"`
	BaseScore     int     `json:"base_score"`
	Level         string  `json:"level"`
	Ratings       int     `json:"ratings"`
	AverageRating float64 `json:"average_rating"`
	LastRating    int     `json:"last_rating,omitempty"`
}

// ScoresResponse is the payload for GET /api/get_scores.
type ScoresResponse struct {
	Routes      []RouteScore `json:"routes"`
	GeneratedAt string       `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
