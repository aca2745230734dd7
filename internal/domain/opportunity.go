package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Opportunity is a raw scanner record. Scanners disagree on shape, so it is
// kept as loose key/value data until conversion.
type Opportunity map[string]any

func (o Opportunity) String(key string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

// Float returns a numeric field. Strings holding numbers are accepted.
func (o Opportunity) Float(key string) (float64, bool) {
	v, ok := o[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// FloatOr returns the first present numeric field among keys, or def.
func (o Opportunity) FloatOr(def float64, keys ...string) float64 {
	for _, k := range keys {
		if f, ok := o.Float(k); ok {
			return f
		}
	}
	return def
}

// Time parses an RFC 3339 or YYYY-MM-DD field.
func (o Opportunity) Time(key string) (time.Time, bool) {
	s := o.String(key)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (o Opportunity) Ticker() string {
	return strings.ToUpper(o.String("ticker"))
}

// StrategyTag is the legacy strategy type, lowercased.
func (o Opportunity) StrategyTag() string {
	tag := o.String("strategy_type")
	if tag == "" {
		tag = o.String("type")
	}
	return strings.ToLower(tag)
}

func (o Opportunity) Score() float64 {
	return o.FloatOr(0, "score")
}
