package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// unboundedToken is the wire form of an unbounded ratio.
const unboundedToken = "inf"

// Ratio is a leverage or coverage figure that may be unbounded, e.g.
// debt-to-equity when equity is zero. The zero value is a bounded 0.
type Ratio struct {
	value     float64
	unbounded bool
}

// Bounded returns a finite ratio.
func Bounded(v float64) Ratio {
	return Ratio{value: v}
}

// Unbounded returns the explicit "infinite" marker.
func Unbounded() Ratio {
	return Ratio{unbounded: true}
}

// IsUnbounded reports whether r is the infinite marker.
func (r Ratio) IsUnbounded() bool {
	return r.unbounded
}

// Value returns the finite value and true, or 0 and false when unbounded.
func (r Ratio) Value() (float64, bool) {
	if r.unbounded {
		return 0, false
	}
	return r.value, true
}

// Exceeds reports whether r is strictly above limit. Unbounded exceeds everything.
func (r Ratio) Exceeds(limit float64) bool {
	return r.unbounded || r.value > limit
}

// Format renders the value with the given precision, or "inf".
func (r Ratio) Format(prec int) string {
	if r.unbounded {
		return unboundedToken
	}
	return strconv.FormatFloat(r.value, 'f', prec, 64)
}

func (r Ratio) String() string {
	return r.Format(2)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.unbounded {
		return json.Marshal(unboundedToken)
	}
	return json.Marshal(r.value)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != unboundedToken {
			return fmt.Errorf("invalid ratio %q", s)
		}
		*r = Unbounded()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Bounded(v)
	return nil
}
