package alerts

import (
	"strconv"
	"strings"
)

// RouteState is the view of one route key that rules are evaluated against.
type RouteState struct {
	Key        string `json:"key"`
	RouteID    string `json:"route_id"`
	Adjustment int    `json:"adjustment"`
	Score      int    `json:"score"`
	Level      string `json:"level"`
	Ratings    int    `json:"ratings"`
}

// evalCondition evaluates a rule condition string against a RouteState.
//
// Supported expressions (field operator value):
//
//	score < 50
//	adjustment <= -20
//	ratings >= 10
//	level == risky
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, st RouteState) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "level" {
		switch op {
		case "==":
			return st.Level == rhs, 0
		case "!=":
			return st.Level != rhs, 0
		}
		return false, 0
	}

	v, ok := numericField(field, st)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the route state.
func numericField(field string, st RouteState) (float64, bool) {
	switch field {
	case "score":
		return float64(st.Score), true
	case "adjustment":
		return float64(st.Adjustment), true
	case "ratings":
		return float64(st.Ratings), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
