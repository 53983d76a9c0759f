package osuirc

import (
	"fmt"
	"strings"
)

// BaseChannel is the fixed administrative target for commands that are not
// bound to a match channel. BanchoBot accepts them as a direct message.
const BaseChannel = "BanchoBot"

// TeamColor selects a side in team modes.
type TeamColor string

const (
	TeamRed  TeamColor = "red"
	TeamBlue TeamColor = "blue"
)

// VsMode and ScoreMode parameterize "!mp set".
type (
	VsMode    int
	ScoreMode int
)

const (
	VsHeadToHead VsMode = 0
	VsTagCoop    VsMode = 1
	VsTeam       VsMode = 2
	VsTagTeam    VsMode = 3

	ScoreByScore    ScoreMode = 0
	ScoreByAccuracy ScoreMode = 1
	ScoreByCombo    ScoreMode = 2
	ScoreV2         ScoreMode = 3
)

// Mode is the play mode argument for "!mp map".
type Mode int

const (
	ModeOsu   Mode = 0
	ModeTaiko Mode = 1
	ModeCatch Mode = 2
	ModeMania Mode = 3
)

// Actions is the outbound chat-protocol surface. The "!mp" verb strings are a
// versioned contract with Bancho and must not be altered. All writes are
// fire-and-forget: the single connection serializes them and delivery errors
// surface through the client run loop, not here.
type Actions interface {
	Say(target, text string)
	Roll(channel string)

	MpMake(name string)
	MpMakePrivate(name string)
	MpClose(channel string)
	MpPassword(channel, password string)
	MpInvite(channel, username string)
	MpAddRef(channel, username string)
	MpRmRef(channel, username string)
	MpListRef(channel string)
	MpCheckPermission(channel string)
	MpLock(channel string)
	MpUnlock(channel string)
	MpSize(channel string, size int)
	MpMove(channel string, slot int)
	MpHost(channel, username string)
	MpClearHost(channel string)
	MpTeam(channel, username string, color TeamColor)
	MpMods(channel, mods string)
	MpScoreV(channel string, version int)
	MpSet(channel string, vsmode VsMode, scoremode ScoreMode, size int)
	MpSettings(channel string)
	MpMap(channel string, mapID int64, mode Mode)
	MpTimer(channel string, seconds int)
	MpAbortTimer(channel string)
	MpStart(channel string, seconds int)
	MpAbort(channel string)
	MpKick(channel, username string)
	MpHelp(channel string)
}

// Commands implements Actions over any function that can deliver a PRIVMSG.
// The Client provides the real sender; tests substitute a recorder.
type Commands struct {
	say func(target, text string)
}

// NewCommands builds the Bancho command surface over a raw say function.
func NewCommands(say func(target, text string)) *Commands {
	return &Commands{say: say}
}

func (c *Commands) mp(channel, command string) {
	c.say(channel, strings.TrimSpace("!mp "+command))
}

func (c *Commands) Say(target, text string) { c.say(target, text) }

func (c *Commands) Roll(channel string) {
	if channel == "" {
		channel = BaseChannel
	}
	c.say(channel, "!roll")
}

func (c *Commands) MpMake(name string) { c.mp(BaseChannel, "make "+name) }

func (c *Commands) MpMakePrivate(name string) { c.mp(BaseChannel, "makeprivate "+name) }

func (c *Commands) MpClose(channel string) { c.mp(channel, "close") }

func (c *Commands) MpPassword(channel, password string) { c.mp(channel, "password "+password) }

func (c *Commands) MpInvite(channel, username string) { c.mp(channel, "invite "+username) }

func (c *Commands) MpAddRef(channel, username string) { c.mp(channel, "addref "+username) }

func (c *Commands) MpRmRef(channel, username string) { c.mp(channel, "rmref "+username) }

func (c *Commands) MpListRef(channel string) { c.mp(channel, "listref") }

func (c *Commands) MpCheckPermission(channel string) { c.mp(channel, "checkperm") }

func (c *Commands) MpLock(channel string) { c.mp(channel, "lock") }

func (c *Commands) MpUnlock(channel string) { c.mp(channel, "unlock") }

// MpSize clamps to Bancho's accepted lobby range of 2-16 slots.
func (c *Commands) MpSize(channel string, size int) {
	c.mp(channel, fmt.Sprintf("size %d", clamp(size, 2, 16)))
}

// MpMove clamps the target slot to 1-16.
func (c *Commands) MpMove(channel string, slot int) {
	c.mp(channel, fmt.Sprintf("move %d", clamp(slot, 1, 16)))
}

func (c *Commands) MpHost(channel, username string) { c.mp(channel, "host "+username) }

func (c *Commands) MpClearHost(channel string) { c.mp(channel, "clearhost") }

func (c *Commands) MpTeam(channel, username string, color TeamColor) {
	c.mp(channel, fmt.Sprintf("team %s %s", username, color))
}

func (c *Commands) MpMods(channel, mods string) { c.mp(channel, "mods "+mods) }

func (c *Commands) MpScoreV(channel string, version int) {
	c.mp(channel, fmt.Sprintf("scorev %d", clamp(version, 1, 2)))
}

func (c *Commands) MpSet(channel string, vsmode VsMode, scoremode ScoreMode, size int) {
	if size > 0 {
		c.mp(channel, fmt.Sprintf("set %d %d %d", vsmode, scoremode, clamp(size, 2, 16)))
		return
	}
	c.mp(channel, fmt.Sprintf("set %d %d", vsmode, scoremode))
}

func (c *Commands) MpSettings(channel string) { c.mp(channel, "settings") }

func (c *Commands) MpMap(channel string, mapID int64, mode Mode) {
	c.mp(channel, fmt.Sprintf("map %d %d", mapID, mode))
}

func (c *Commands) MpTimer(channel string, seconds int) {
	if seconds > 0 {
		c.mp(channel, fmt.Sprintf("timer %d", seconds))
		return
	}
	c.mp(channel, "timer")
}

func (c *Commands) MpAbortTimer(channel string) { c.mp(channel, "aborttimer") }

func (c *Commands) MpStart(channel string, seconds int) {
	if seconds > 0 {
		c.mp(channel, fmt.Sprintf("start %d", seconds))
		return
	}
	c.mp(channel, "start")
}

func (c *Commands) MpAbort(channel string) { c.mp(channel, "abort") }

func (c *Commands) MpKick(channel, username string) { c.mp(channel, "kick "+username) }

func (c *Commands) MpHelp(channel string) { c.mp(channel, "help") }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
