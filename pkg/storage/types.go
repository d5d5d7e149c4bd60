package storage

import (
	"bytes"
	"encoding/json"
	"time"
)

// isoLayouts are accepted when decoding timestamps. The zone-less forms are
// what older documents contain; they are read in local time.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a time that tolerates malformed persisted values.
//
// A value that cannot be parsed keeps its raw text and a zero Time, so a
// document with one bad date still loads and re-saves that date unchanged.
type Timestamp struct {
	time.Time
	raw string
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Valid reports whether the timestamp holds a usable time.
func (t Timestamp) Valid() bool {
	return !t.Time.IsZero()
}

// String returns the RFC3339 form, or the raw text for malformed values.
func (t Timestamp) String() string {
	if t.raw != "" {
		return t.raw
	}
	if t.Time.IsZero() {
		return ""
	}
	return t.Time.Format(time.RFC3339Nano)
}

// DateString returns the YYYY-MM-DD part, or a prefix of the raw text.
func (t Timestamp) DateString() string {
	if t.Valid() {
		return t.Time.Format("2006-01-02")
	}
	if len(t.raw) > 10 {
		return t.raw[:10]
	}
	return t.raw
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler. It never fails on a string value.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = Timestamp{raw: string(data)}
		return nil
	}
	*t = ParseTimestamp(s)
	return nil
}

// ParseTimestamp parses s with the accepted layouts. Unparseable input is kept
// as raw text.
func ParseTimestamp(s string) Timestamp {
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range isoLayouts {
		var (
			parsed time.Time
			err    error
		)
		if layout == time.RFC3339Nano {
			parsed, err = time.Parse(layout, s)
		} else {
			parsed, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return Timestamp{Time: parsed}
		}
	}
	return Timestamp{raw: s}
}

// BasicInfo maps attribute names to extracted values.
//
// Whole JSON numbers decode as int so values such as age keep the type they
// were written with.
type BasicInfo map[string]interface{}

// UnmarshalJSON implements json.Unmarshaler.
func (b *BasicInfo) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*b = BasicInfo{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(BasicInfo, len(raw))
	for k, v := range raw {
		out[k] = normalizeNumber(v)
	}
	*b = out
	return nil
}

func normalizeNumber(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Clone returns a shallow copy of the map.
func (b BasicInfo) Clone() BasicInfo {
	out := make(BasicInfo, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// String returns the value for key as text, or "" when absent.
func (b BasicInfo) String(key string) string {
	v, ok := b[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
