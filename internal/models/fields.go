package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexString decodes from either a JSON string or a JSON number. Vehicle years
// arrive in both shapes depending on which backend form created the record.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("year must be a string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Amount is a money value sent as a JSON number or a numeric string. Anything
// else decodes as zero so a single malformed row cannot fail a whole list.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = 0
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*a = Amount(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*a = Amount(v)
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp keeps the backend's raw creation timestamp alongside its parsed
// value so a cached snapshot re-encodes byte-for-byte.
type Timestamp struct {
	Raw  string
	Time time.Time
}

// Numeric timestamps below epochSecondsMin are not treated as epochs; at or
// above epochMillisThreshold they are read as milliseconds.
const (
	epochSecondsMin      = 1e8
	epochMillisThreshold = 1e11
)

func ParseTimestamp(raw string) Timestamp {
	raw = strings.TrimSpace(raw)
	ts := Timestamp{Raw: raw}
	if raw == "" {
		return ts
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			ts.Time = parsed.UTC()
			return ts
		}
	}
	if epoch, err := strconv.ParseFloat(raw, 64); err == nil && epoch >= epochSecondsMin {
		if epoch >= epochMillisThreshold {
			ts.Time = time.UnixMilli(int64(epoch)).UTC()
		} else {
			ts.Time = time.Unix(int64(epoch), 0).UTC()
		}
	}
	return ts
}

// UnmarshalJSON accepts a string or an epoch number. Other JSON values decode
// as an empty timestamp instead of failing the enclosing record.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Timestamp{}
	if len(data) == 0 {
		return nil
	}
	switch {
	case data[0] == '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		*t = ParseTimestamp(raw)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*t = ParseTimestamp(n.String())
		}
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(t.Raw)
}

func (t Timestamp) IsZero() bool {
	return t.Time.IsZero()
}

// Format renders the timestamp for tables, or the raw value when it could not
// be parsed.
func (t Timestamp) Format(layout string) string {
	if t.Time.IsZero() {
		return t.Raw
	}
	return t.Time.Format(layout)
}

// Vehicle is the brand/model/year triple shared by every list entity.
type Vehicle struct {
	Brand string     `json:"brand"`
	Model string     `json:"model"`
	Year  FlexString `json:"year"`
}

func (v Vehicle) Title() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{v.Brand, v.Model, string(v.Year)} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}
