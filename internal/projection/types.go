package projection

import (
	"encoding/json"
	"strings"
	"time"
)

// ListQuery selects what /api/0/list enumerates.
type ListQuery struct {
	User   string `form:"user"`
	Device string `form:"device"`
}

// ListResponse wraps user and device listings.
type ListResponse struct {
	Results []string `json:"results"`
}

// LastQuery selects a latest-location tier and an optional field allow-list.
type LastQuery struct {
	User   string `form:"user"`
	Device string `form:"device"`
	Fields string `form:"fields"` // comma separated
}

func (q LastQuery) fieldList() []string {
	if q.Fields == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(q.Fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// RecQuery names one log shard.
type RecQuery struct {
	User   string `form:"user"`
	Device string `form:"device"`
	Month  string `form:"month"`  // YYYY-MM
	Format string `form:"format"` // "json" or empty for the raw shard
}

// RecordView is one parsed log line.
type RecordView struct {
	Timestamp time.Time       `json:"timestamp"`
	Event     json.RawMessage `json:"event"`
}
