package domain

import (
	"database/sql/driver"
	"strings"

	"github.com/goccy/go-json"
)

type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" {
		*s = nil
		return nil
	}

	return json.Unmarshal(data, (*[]string)(s))
}

// ParseGenres reads a genre list in any of the shapes found in exported
// corpora: a JSON array, a python-style list repr ("['dance pop', 'pop']")
// or a plain comma separated string.
func ParseGenres(raw string) StringSlice {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}

	if strings.HasPrefix(raw, "[\"") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
	}

	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	var out StringSlice
	for _, part := range strings.Split(raw, ",") {
		g := strings.Trim(strings.TrimSpace(part), `'"`)
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}
