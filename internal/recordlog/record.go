package recordlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form written at the start of every line.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const separator = " * "

// Record is one line of a shard.
type Record struct {
	Timestamp time.Time       `json:"timestamp"`
	Event     json.RawMessage `json:"event"`
}

// NewRecord marshals event and stamps it with at.
func NewRecord(at time.Time, event any) (Record, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return Record{}, fmt.Errorf("marshal event: %w", err)
	}
	return Record{Timestamp: at.UTC(), Event: raw}, nil
}

// FormatRecord renders rec as a single newline-terminated line.
func FormatRecord(rec Record) ([]byte, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, rec.Event); err != nil {
		return nil, fmt.Errorf("record event is not valid JSON: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(TimestampLayout) + len(separator) + compact.Len() + 1)
	buf.WriteString(rec.Timestamp.UTC().Format(TimestampLayout))
	buf.WriteString(separator)
	buf.Write(compact.Bytes())
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ParseRecords splits shard content back into records, in file order.
// Lines that are not "<timestamp> * <json>" are skipped.
func ParseRecords(content []byte) []Record {
	lines := strings.Split(string(content), "\n")
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		ts, payload, ok := strings.Cut(line, separator)
		if !ok {
			continue
		}
		at, err := time.Parse(TimestampLayout, ts)
		if err != nil {
			continue
		}
		if !json.Valid([]byte(payload)) {
			continue
		}
		records = append(records, Record{Timestamp: at.UTC(), Event: json.RawMessage(payload)})
	}
	return records
}
