package latest

import "strings"

const keyPrefix = "last"

// Tier is the granularity a Key addresses.
type Tier int

const (
	TierGlobal Tier = iota
	TierUser
	TierDevice
)

// Key names one tier entry in the key-value store. The rendering follows
// Tier alone, so empty user or device names still map to their own keys.
type Key struct {
	Tier   Tier
	User   string
	Device string
}

// DeviceKey is the tier holding the single latest event of one device.
func DeviceKey(user, device string) Key { return Key{Tier: TierDevice, User: user, Device: device} }

// UserKey is the tier holding the latest event of each device of a user.
func UserKey(user string) Key { return Key{Tier: TierUser, User: user} }

// GlobalKey is the tier holding the latest event of every (user, device).
func GlobalKey() Key { return Key{Tier: TierGlobal} }

// ForQuery picks the most specific tier the given filters address.
// A device without a user addresses the global tier.
func ForQuery(user, device string) Key {
	switch {
	case user != "" && device != "":
		return DeviceKey(user, device)
	case user != "":
		return UserKey(user)
	default:
		return GlobalKey()
	}
}

// String renders last:{user}:{device}, last:{user} or last:all.
func (k Key) String() string {
	switch k.Tier {
	case TierDevice:
		return strings.Join([]string{keyPrefix, k.User, k.Device}, ":")
	case TierUser:
		return keyPrefix + ":" + k.User
	default:
		return keyPrefix + ":all"
	}
}
