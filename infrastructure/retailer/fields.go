package retailer

import (
	"regexp"
	"strconv"
	"strings"
)

// Retailer payloads are loosely shaped and drift over time, so extraction
// goes through these helpers instead of rigid structs. A missing or
// wrong-typed field reads as the zero value, never a parse failure.
type fields map[string]interface{}

func (f fields) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := f[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (f fields) num(keys ...string) *float64 {
	for _, k := range keys {
		switch v := f[k].(type) {
		case float64:
			out := v
			return &out
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				out := parsed
				return &out
			}
		}
	}
	return nil
}

func (f fields) boolean(keys ...string) bool {
	for _, k := range keys {
		if v, ok := f[k].(bool); ok && v {
			return true
		}
	}
	return false
}

func (f fields) boolPtr(keys ...string) *bool {
	for _, k := range keys {
		if v, ok := f[k].(bool); ok {
			out := v
			return &out
		}
	}
	return nil
}

func (f fields) list(key string) []fields {
	raw, ok := f[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]fields, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, fields(m))
		}
	}
	return out
}

var priceRe = regexp.MustCompile(`\d+(?:\.\d{1,2})?`)

// priceFromText pulls the first numeric amount out of display text like
// "$4.50" or "2 for $7".
func priceFromText(text string) *float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return ' '
	}, text)

	match := priceRe.FindString(cleaned)
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}
