package latest

import (
	"encoding/json"

	v1 "github.com/aevon-lab/waypoint/internal/api/v1"
)

// EvictDevice drops every entry whose topic names device, whatever its user.
// The user tier only ever holds one user's devices.
func EvictDevice(entries []json.RawMessage, device string) []json.RawMessage {
	return filter(entries, func(_, d string) bool { return d == device })
}

// EvictUserDevice drops every entry whose topic names exactly (user, device).
func EvictUserDevice(entries []json.RawMessage, user, device string) []json.RawMessage {
	return filter(entries, func(u, d string) bool { return u == user && d == device })
}

// filter keeps entries that have no well-formed topic or whose topic does
// not match.
func filter(entries []json.RawMessage, match func(user, device string) bool) []json.RawMessage {
	kept := make([]json.RawMessage, 0, len(entries)+1)
	for _, entry := range entries {
		user, device, ok := identity(entry)
		if ok && match(user, device) {
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}

func identity(entry json.RawMessage) (user, device string, ok bool) {
	var head struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(entry, &head); err != nil {
		return "", "", false
	}
	user, device, err := v1.ParseTopic(head.Topic)
	if err != nil {
		return "", "", false
	}
	return user, device, true
}
