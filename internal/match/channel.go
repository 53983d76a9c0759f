// Package match coordinates the lifecycle of osu! multiplayer matches,
// bridging the IRC event stream, the osu! API and the match store.
package match

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ChannelPrefix is the fixed prefix of private multiplayer match channels.
const ChannelPrefix = "#mp_"

// ErrNotMPChannel identifies channels outside the private-match naming
// convention.
var ErrNotMPChannel = errors.New("channel is not a multiplayer match channel")

// IsMPChannel reports whether a channel follows the #mp_<id> convention.
func IsMPChannel(channel string) bool {
	_, err := ParseMPChannel(channel)
	return err == nil
}

// ParseMPChannel extracts the osu! match id from a #mp_<id> channel name.
// The suffix must be digits only; anything else is a typed error, never a
// garbage id.
func ParseMPChannel(channel string) (int64, error) {
	suffix, ok := strings.CutPrefix(channel, ChannelPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotMPChannel, channel)
	}
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: invalid id in %q", ErrNotMPChannel, channel)
	}
	return id, nil
}

// ChannelForID is the inverse mapping: the channel name for an osu! match id.
func ChannelForID(osuMatchID int64) string {
	return fmt.Sprintf("%s%d", ChannelPrefix, osuMatchID)
}
