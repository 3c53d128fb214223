package leadapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the millisecond ISO-8601 form the store expects.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time is a store timestamp. Empty strings and null decode to the zero value.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var millis int64
		if numErr := json.Unmarshal(data, &millis); numErr != nil {
			return fmt.Errorf("invalid timestamp %s", string(data))
		}
		t.Time = time.UnixMilli(millis).UTC()
		return nil
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Ptr returns nil for the zero value.
func (t Time) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	value := t.Time
	return &value
}

// ParseTime accepts the timestamp spellings the store has been seen to emit.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

// FormatTime renders t the way the store's date query parameters expect.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Ref is a reference that the store sends either as a bare id or as a
// populated document.
type Ref struct {
	ID   string
	Name string
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = Ref{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		r.ID = strings.TrimSpace(id)
		return nil
	}
	var doc struct {
		MongoID     string `json:"_id"`
		ID          string `json:"id"`
		CompanyName string `json:"companyName"`
		Name        string `json:"name"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.ID = firstNonEmpty(doc.MongoID, doc.ID)
	r.Name = firstNonEmpty(doc.CompanyName, doc.Name)
	return nil
}

// OneOrMany decodes a field that is sometimes a single object and sometimes
// an array. null decodes to an empty slice.
type OneOrMany[T any] []T

func (m *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*m = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*m = []T{item}
	return nil
}

// ID picks the document id from either _id or id.
type ID struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
}

func (i ID) Value() string {
	return firstNonEmpty(i.MongoID, i.ID)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
