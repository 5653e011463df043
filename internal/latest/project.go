package latest

import "encoding/json"

// Project keeps only the named top-level fields of each entry. Entries that
// are not JSON objects pass through unchanged. An empty field list is a no-op.
func Project(entries []json.RawMessage, fields []string) []json.RawMessage {
	if len(fields) == 0 {
		return entries
	}

	out := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(entry, &obj); err != nil || obj == nil {
			out = append(out, entry)
			continue
		}

		picked := make(map[string]json.RawMessage, len(fields))
		for _, f := range fields {
			if v, ok := obj[f]; ok {
				picked[f] = v
			}
		}
		projected, err := json.Marshal(picked)
		if err != nil {
			out = append(out, entry)
			continue
		}
		out = append(out, projected)
	}
	return out
}
