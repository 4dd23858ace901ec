package domain

import (
	"math"
	"strconv"
	"strings"
)

// FlexFloat decodes a JSON value that should be numeric but may arrive as
// a number, a quoted numeric string, null, or garbage. Malformed values
// coerce to 0 instead of failing the surrounding record.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) Float64() float64 {
	return float64(f)
}
