package partition

import (
	"fmt"
	"strings"
	"time"
)

// Root is the storage prefix under which every log shard lives.
const Root = "rec/"

// Extension marks a log shard object.
const Extension = ".rec"

// monthLayout is the yearMonth format used in shard names.
const monthLayout = "2006-01"

// Key identifies one device-month log shard.
type Key struct {
	User      string
	Device    string
	YearMonth string
}

// For returns the shard key for an event recorded at t.
// The month is always taken in UTC.
func For(user, device string, t time.Time) Key {
	return Key{
		User:      user,
		Device:    device,
		YearMonth: t.UTC().Format(monthLayout),
	}
}

// ObjectKey is the storage key: rec/{user}/{device}/{yearMonth}.rec
func (k Key) ObjectKey() string {
	return DevicePrefix(k.User, k.Device) + k.FileName()
}

// FileName is the last segment of the object key.
func (k Key) FileName() string {
	return k.YearMonth + Extension
}

func (k Key) String() string {
	return k.ObjectKey()
}

// UserPrefix lists every device of a user.
func UserPrefix(user string) string {
	return Root + user + "/"
}

// DevicePrefix lists every shard of a device.
func DevicePrefix(user, device string) string {
	return UserPrefix(user) + device + "/"
}

// Parse reverses ObjectKey.
func Parse(objectKey string) (Key, error) {
	if !strings.HasPrefix(objectKey, Root) {
		return Key{}, fmt.Errorf("object key %q is outside %q", objectKey, Root)
	}
	parts := strings.Split(strings.TrimPrefix(objectKey, Root), "/")
	if len(parts) != 3 || !strings.HasSuffix(parts[2], Extension) {
		return Key{}, fmt.Errorf("object key %q is not a log shard", objectKey)
	}
	month := strings.TrimSuffix(parts[2], Extension)
	if _, err := ParseMonth(month); err != nil {
		return Key{}, fmt.Errorf("object key %q: %w", objectKey, err)
	}
	return Key{User: parts[0], Device: parts[1], YearMonth: month}, nil
}

// ParseMonth validates a YYYY-MM string.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q (expected YYYY-MM)", month)
	}
	return t, nil
}

// Segment returns the n-th "/"-separated segment of an object key, or ""
// when the key is shorter. Segment 0 is always "rec".
func Segment(objectKey string, n int) string {
	parts := strings.Split(objectKey, "/")
	if n < 0 || n >= len(parts) {
		return ""
	}
	return parts[n]
}
