package utils

import (
	"bytes"
	"encoding/json"
)

// ScalarText returns the text of a JSON string or number. Numbers keep
// their literal form ("12345"). Absent, null, empty, zero and every other
// JSON type yield "" so callers can treat them as missing.
func ScalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	default:
		return ""
	}
}
