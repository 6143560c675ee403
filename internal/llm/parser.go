package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseResponse turns a raw model response into transaction candidates. It
// locates the JSON payload (fenced block first, then bracket scanning), parses
// it strictly, and accepts exactly two shapes: a bare array, or an object with
// a single array-valued field.
func ParseResponse(raw string) ([]Candidate, error) {
	payload := locatePayload(raw)

	var parsed interface{}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}

	items, err := candidateList(parsed)
	if err != nil {
		return nil, err
	}

	result := make([]Candidate, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("element %d is %T, want object", i, item)
		}
		result = append(result, candidateFromObject(obj))
	}
	return result, nil
}

// candidateList matches the parsed value against the enumerated expected
// shapes. Anything else is an error, not a reason to probe further.
func candidateList(parsed interface{}) ([]interface{}, error) {
	switch v := parsed.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		var arrays [][]interface{}
		for _, value := range v {
			if arr, ok := value.([]interface{}); ok {
				arrays = append(arrays, arr)
			}
		}
		if len(arrays) != 1 {
			return nil, fmt.Errorf("root object has %d array fields, want exactly 1", len(arrays))
		}
		return arrays[0], nil
	default:
		return nil, fmt.Errorf("root value is %T, want array or object", parsed)
	}
}

// candidateFromObject never fails: a missing or mistyped field yields its
// zero value, and the classifier decides whether the candidate is usable.
func candidateFromObject(obj map[string]interface{}) Candidate {
	c := Candidate{
		Date:        normalizeDate(getString(obj, "date")),
		Description: stripTrailingSerial(getString(obj, "description")),
		Category:    getString(obj, "category"),
	}

	c.Amount = parseAmount(obj["amount"])

	switch strings.ToLower(getString(obj, "direction")) {
	case string(DirectionDebit):
		c.Direction = DirectionDebit
	case string(DirectionCredit):
		c.Direction = DirectionCredit
	}

	if v, ok := obj["isPayment"].(bool); ok {
		c.IsPayment = v
	}

	return c
}

// parseAmount accepts a JSON number or a numeric string. Models quote
// amounts more often than not, and NullDecimal itself marshals to a quoted
// string. Negative or unparseable values stay invalid.
func parseAmount(v interface{}) decimal.NullDecimal {
	var d decimal.Decimal
	switch n := v.(type) {
	case float64:
		d = decimal.NewFromFloat(n)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.NullDecimal{}
		}
		d = parsed
	default:
		return decimal.NullDecimal{}
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d.Round(2), Valid: true}
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// normalizeDate converts the model's date to the canonical internal form
// "YYYY-MM-DD". Separator variants are converted first; a hyphenated
// month-first form is reordered. An unrecognized value is passed through
// unchanged rather than dropped.
func normalizeDate(date string) string {
	if date == "" {
		return ""
	}
	normalized := strings.ReplaceAll(date, "/", "-")

	if _, err := time.Parse("2006-01-02", normalized); err == nil {
		return normalized
	}
	if t, err := time.Parse("01-02-2006", normalized); err == nil {
		return t.Format("2006-01-02")
	}
	return date
}

// trailingSerial matches long numeric serials that some issuers append to
// transaction descriptions, e.g. "NEFT DIVIDEND 000012345678901".
var trailingSerial = regexp.MustCompile(`[\s:#-]*\d{6,}$`)

func stripTrailingSerial(desc string) string {
	stripped := strings.TrimSpace(trailingSerial.ReplaceAllString(desc, ""))
	if stripped == "" {
		// The whole description was one serial; keep the original.
		return desc
	}
	return stripped
}

// locatePayload extracts the JSON substring from a raw response. A fenced
// code block wins; otherwise the first balanced {...} or [...] region is
// used; otherwise the full trimmed text.
func locatePayload(raw string) string {
	s := strings.TrimSpace(raw)

	if fenced, ok := extractFencedBlock(s); ok {
		return fenced
	}
	if region, ok := extractBalancedRegion(s); ok {
		return region
	}
	return s
}

func extractFencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start == -1 {
		return "", false
	}
	rest := s[start+3:]
	// Drop an optional language tag line, e.g. ```json.
	if nl := strings.Index(rest, "\n"); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{[") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// extractBalancedRegion scans for the first '{' or '[' and tracks nesting
// until the matching close, respecting quoted strings and escape sequences.
func extractBalancedRegion(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
