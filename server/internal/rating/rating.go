package rating

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bounds of the accepted rating scale.
const (
	Min = 1
	Max = 5
)

// ErrOutOfRange is returned by a strict Policy for ratings outside Min..Max.
var ErrOutOfRange = errors.New("rating out of range")

// ErrNotNumeric is returned when a rating cannot be coerced to an integer.
var ErrNotNumeric = errors.New("rating is not a number")

// Delta returns the adjustment delta for r. Anything that is not 1..4,
// including zero and negatives, is treated as a 5.
func Delta(r int) int {
	switch r {
	case 1:
		return -10
	case 2:
		return -8
	case 3:
		return 0
	case 4:
		return 3
	default:
		return 5
	}
}

// InRange reports whether r is on the 1..5 scale.
func InRange(r int) bool { return r >= Min && r <= Max }

// IsConcern reports whether r counts as a safety concern (very unsafe or unsafe).
func IsConcern(r int) bool { return InRange(r) && r <= 2 }

// Policy resolves ratings to deltas.
type Policy struct {
	// Strict rejects ratings outside 1..5 instead of applying the +5 fallthrough.
	Strict bool
}

// Resolve returns the delta for r under p.
func (p Policy) Resolve(r int) (int, error) {
	if p.Strict && !InRange(r) {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, r, Min, Max)
	}
	return Delta(r), nil
}

// Value is a rating decoded from JSON. It accepts numbers, truncating any
// fraction toward zero, and strings holding an integer.
type Value int

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrNotNumeric, err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrNotNumeric, s)
		}
		*v = Value(n)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %s", ErrNotNumeric, b)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return fmt.Errorf("%w: %s overflows", ErrNotNumeric, b)
	}
	*v = Value(math.Trunc(f))
	return nil
}
