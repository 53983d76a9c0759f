package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nfrund/refbot/internal/bancho"
)

// Announcement texts and patterns. The wording is Bancho's, verbatim; treat it
// as an external contract.
const (
	matchLimitText      = "You cannot create any more tournament matches. Please close any previous tournament matches you have open."
	passwordChangedText = "Changed the match password"
	allReadyText        = "All players are ready"
	startedText         = "The match has started!"
	abortedText         = "Aborted the match"
	hostChangingText    = "Host is changing map..."
)

var (
	matchCreatedRe = regexp.MustCompile(`^Created the (?:tournament )?match (?:(?P<url>https?://osu\.ppy\.sh/mp/(?P<matchId>\d+))|#?mp_(?P<matchIdAlt>\d+))(?: (?P<name>.+))?$`)
	slotJoinedRe   = regexp.MustCompile(`^(?P<username>.+) joined in slot (?P<slot>\d+)\.$`)
	slotMovedRe    = regexp.MustCompile(`^(?P<username>.+) moved to slot (?P<slot>\d+)\.?$`)
	hostChangedRe  = regexp.MustCompile(`^Changed match host to (?P<host>.+)$`)
	beatmapRe      = regexp.MustCompile(`^Beatmap changed to: (?P<beatmap>.+?) \((?P<url>https?://[^\s)]+)\)$`)
	playerDoneRe   = regexp.MustCompile(`^(?P<username>.+) finished playing \(Score: (?P<score>\d+), (?P<result>[A-Z]+)\)\.?$`)
	matchClosedRe  = regexp.MustCompile(`(?i)^(?:Closed the (?:tournament )?match(?:(?: https?://osu\.ppy\.sh/mp/(?P<matchId>\d+))|(?: #?mp_(?P<matchIdAlt>\d+)))?\.?|Match closed)$`)
)

// rule pairs an event tag with either an exact literal or a pattern.
type rule struct {
	event   Event
	literal string
	pattern *regexp.Regexp
}

func (r rule) matches(body string) bool {
	if r.pattern != nil {
		return r.pattern.MatchString(body)
	}
	return body == r.literal
}

// rules is the classification table, checked top to bottom; the first match
// wins. The order is a strict contract: do not reorder without re-verifying
// that no two rules can match the same realistic announcement (see the
// exclusivity test).
var rules = []rule{
	{event: EventMatchLimitExceeded, literal: matchLimitText},
	{event: EventMatchCreated, pattern: matchCreatedRe},
	{event: EventPasswordChanged, literal: passwordChangedText},
	{event: EventSlotJoined, pattern: slotJoinedRe},
	{event: EventSlotMoved, pattern: slotMovedRe},
	{event: EventHostChanged, pattern: hostChangedRe},
	{event: EventBeatmapChanged, pattern: beatmapRe},
	{event: EventAllReady, literal: allReadyText},
	{event: EventStarted, literal: startedText},
	{event: EventAborted, literal: abortedText},
	{event: EventHostChanging, literal: hostChangingText},
	{event: EventPlayerFinished, pattern: playerDoneRe},
	{event: EventMatchClosed, pattern: matchClosedRe},
}

// Classify maps an announcer message body to its event tag. ok=false means no
// rule matched; the body is still archived raw but produces no typed event.
func Classify(body string) (Event, bool) {
	for _, r := range rules {
		if r.matches(body) {
			return r.event, true
		}
	}
	return "", false
}

type classifier struct{}

func (classifier) Event(raw string) (Event, bool) {
	return Classify(raw)
}

// Parse extracts the typed payload. args follow the PRIVMSG shape: channel
// then body. A capture that fails numeric coercion is a hard error, never a
// silent default.
func (classifier) Parse(event Event, meta bancho.Meta, args []string) (any, error) {
	var channel, body string
	if len(args) > 0 {
		channel = args[0]
	}
	if len(args) > 1 {
		body = args[1]
	}
	user := meta.Msg.Sender()

	switch event {
	case EventMatchLimitExceeded:
		return MatchLimitExceeded{User: user, Channel: channel}, nil

	case EventMatchCreated:
		caps, err := captures(matchCreatedRe, body)
		if err != nil {
			return nil, err
		}
		idText := caps["matchId"]
		if idText == "" {
			idText = caps["matchIdAlt"]
		}
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid match id %q: %w", idText, err)
		}
		url := caps["url"]
		if url == "" {
			url = fmt.Sprintf("https://osu.ppy.sh/mp/%d", id)
		}
		return MatchCreated{User: user, Channel: channel, MatchID: id, URL: url, Name: caps["name"]}, nil

	case EventPasswordChanged:
		return PasswordChanged{User: user, Channel: channel}, nil

	case EventSlotJoined, EventSlotMoved:
		re := slotJoinedRe
		if event == EventSlotMoved {
			re = slotMovedRe
		}
		caps, err := captures(re, body)
		if err != nil {
			return nil, err
		}
		slot, err := parseSlot(caps["slot"])
		if err != nil {
			return nil, err
		}
		username := caps["username"]
		if username == "" {
			username = user
		}
		if event == EventSlotJoined {
			return SlotJoined{User: username, Channel: channel, Slot: slot}, nil
		}
		return SlotMoved{User: username, Channel: channel, Slot: slot}, nil

	case EventHostChanged:
		caps, err := captures(hostChangedRe, body)
		if err != nil {
			return nil, err
		}
		return HostChanged{User: user, Channel: channel, Host: strings.TrimSpace(caps["host"])}, nil

	case EventBeatmapChanged:
		caps, err := captures(beatmapRe, body)
		if err != nil {
			return nil, err
		}
		return BeatmapChanged{User: user, Channel: channel, Beatmap: strings.TrimSpace(caps["beatmap"]), URL: caps["url"]}, nil

	case EventAllReady:
		return AllReady{User: user, Channel: channel}, nil
	case EventStarted:
		return Started{User: user, Channel: channel}, nil
	case EventAborted:
		return Aborted{User: user, Channel: channel}, nil
	case EventHostChanging:
		return HostChanging{User: user, Channel: channel}, nil

	case EventPlayerFinished:
		caps, err := captures(playerDoneRe, body)
		if err != nil {
			return nil, err
		}
		score, err := strconv.ParseInt(caps["score"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score %q: %w", caps["score"], err)
		}
		username := caps["username"]
		if username == "" {
			username = user
		}
		return PlayerFinished{User: username, Channel: channel, Score: score, Result: caps["result"]}, nil

	case EventMatchClosed:
		caps, err := captures(matchClosedRe, body)
		if err != nil {
			return nil, err
		}
		payload := MatchClosed{User: user, Channel: channel}
		idText := caps["matchId"]
		if idText == "" {
			idText = caps["matchIdAlt"]
		}
		if idText != "" {
			id, err := strconv.ParseInt(idText, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid match id %q: %w", idText, err)
			}
			payload.MatchID = &id
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event %q", event)
	}
}

// captures runs a pattern and returns its named groups. Classification has
// already matched the body, so a miss here means the table and the extractors
// disagree; that is a hard error, not a default.
func captures(re *regexp.Regexp, body string) (map[string]string, error) {
	match := re.FindStringSubmatch(body)
	if match == nil {
		return nil, fmt.Errorf("body %q does not match %s", body, re)
	}
	caps := make(map[string]string, len(match))
	for i, name := range re.SubexpNames() {
		if name != "" {
			caps[name] = match[i]
		}
	}
	return caps, nil
}

func parseSlot(text string) (int, error) {
	slot, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("invalid slot number %q: %w", text, err)
	}
	if slot < 1 {
		return 0, fmt.Errorf("slot number %d out of range", slot)
	}
	return slot, nil
}
