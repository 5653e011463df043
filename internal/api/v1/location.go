package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TypeLocation is the OwnTracks message type carrying a position report.
const TypeLocation = "location"

// TopicPrefix is the first segment of every OwnTracks topic.
const TopicPrefix = "owntracks"

// Validation errors, checked in this order by Validate.
var (
	ErrInvalidPayload     = errors.New("invalid location payload")
	ErrMissingTopic       = errors.New("missing topic")
	ErrInvalidTopicFormat = errors.New("invalid topic format, expected owntracks/<username>/<devicename>")
)

// Known wire names. Everything else lands in Extra.
const (
	fieldType      = "_type"
	fieldLatitude  = "lat"
	fieldLongitude = "lon"
	fieldTopic     = "topic"
	fieldTimestamp = "tst"
)

// LocationEvent is one OwnTracks message as received from a device.
//
// Only the fields the recorder needs are typed. Any other field the device
// sends is kept untouched in Extra so it round-trips through the log and the
// latest-location cache.
type LocationEvent struct {
	Type      string
	Latitude  *float64
	Longitude *float64
	Topic     string

	// Timestamp is the device-reported time in Unix seconds. Devices may
	// send a fractional value.
	Timestamp *float64

	Extra map[string]json.RawMessage
}

// UnmarshalJSON accepts any JSON object. A known field whose value has an
// unexpected JSON type is kept in Extra and its typed field stays unset.
func (e *LocationEvent) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("location event must be a JSON object")
	}

	*e = LocationEvent{}
	for name, value := range raw {
		var ok bool
		switch name {
		case fieldType:
			ok = decodeInto(value, &e.Type)
		case fieldTopic:
			ok = decodeInto(value, &e.Topic)
		case fieldLatitude:
			ok = decodePtr(value, &e.Latitude)
		case fieldLongitude:
			ok = decodePtr(value, &e.Longitude)
		case fieldTimestamp:
			ok = decodePtr(value, &e.Timestamp)
		}
		if !ok {
			if e.Extra == nil {
				e.Extra = make(map[string]json.RawMessage)
			}
			e.Extra[name] = value
		}
	}
	return nil
}

func decodeInto[T any](value json.RawMessage, dst *T) bool {
	if string(value) == "null" {
		return false
	}
	return json.Unmarshal(value, dst) == nil
}

func decodePtr[T any](value json.RawMessage, dst **T) bool {
	var v T
	if !decodeInto(value, &v) {
		return false
	}
	*dst = &v
	return true
}

// MarshalJSON writes the typed and extra fields as one object with sorted keys.
func (e LocationEvent) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Extra)+5)
	for k, v := range e.Extra {
		out[k] = v
	}
	if e.Type != "" {
		out[fieldType] = e.Type
	}
	if e.Latitude != nil {
		out[fieldLatitude] = *e.Latitude
	}
	if e.Longitude != nil {
		out[fieldLongitude] = *e.Longitude
	}
	if e.Topic != "" {
		out[fieldTopic] = e.Topic
	}
	if e.Timestamp != nil {
		out[fieldTimestamp] = *e.Timestamp
	}
	return json.Marshal(out)
}

// IsLocation reports whether the message is a position report.
func (e *LocationEvent) IsLocation() bool {
	return e.Type == TypeLocation
}

// Validate checks the required fields of a location message and returns the
// user and device encoded in its topic.
//
// A coordinate of exactly 0 counts as missing.
func (e *LocationEvent) Validate() (user, device string, err error) {
	if e.Latitude == nil || *e.Latitude == 0 || e.Longitude == nil || *e.Longitude == 0 {
		return "", "", ErrInvalidPayload
	}
	if e.Topic == "" {
		return "", "", ErrMissingTopic
	}
	return ParseTopic(e.Topic)
}

// EffectiveTime is the device timestamp when present and non-zero, else now.
// Fractions of a millisecond are truncated.
func (e *LocationEvent) EffectiveTime(now time.Time) time.Time {
	if e.Timestamp != nil && *e.Timestamp != 0 {
		return time.UnixMilli(int64(*e.Timestamp * 1000)).UTC()
	}
	return now.UTC()
}

// ParseTopic splits owntracks/<user>/<device>.
func ParseTopic(topic string) (user, device string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix {
		return "", "", ErrInvalidTopicFormat
	}
	return parts[1], parts[2], nil
}
