// Package forms holds field types shared by the intake and booking request bodies.
package forms

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotANumber is returned when a numeric field holds something else.
var ErrNotANumber = errors.New("value must be a number")

// Number is a numeric form field. It accepts a JSON number, a numeric string or null, and
// an empty string counts as null. Set is true when the field was present in the payload.
type Number struct {
	Set   bool
	Value *float64
}

// NumberOf returns a present field holding v.
func NumberOf(v float64) Number {
	return Number{Set: true, Value: &v}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	n.Set = true
	n.Value = nil

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return ErrNotANumber
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
	} else {
		raw = string(data)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s", ErrNotANumber, raw)
	}
	n.Value = &v
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// CheckRange returns outOfRange, wrapped with the value, when the field holds a number
// outside [min, max]. Values are never clamped. An empty field passes.
func (n Number) CheckRange(min, max float64, outOfRange error) error {
	if n.Value == nil {
		return nil
	}
	if *n.Value < min || *n.Value > max {
		return fmt.Errorf("%w: got %g", outOfRange, *n.Value)
	}
	return nil
}
