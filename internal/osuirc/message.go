// Package osuirc wraps the IRC transport for the osu! Bancho chat service.
// Line framing and the protocol handshake are delegated to gopkg.in/irc.v4;
// this package adds the Bancho command vocabulary and the tokenized Message
// shape the event buses consume.
package osuirc

import irc "gopkg.in/irc.v4"

// Message is one tokenized line from the chat session. It is constructed per
// incoming line, consumed synchronously by the buses and then discarded.
type Message struct {
	// Command is the symbolic command name ("PRIVMSG", "QUIT", ...).
	Command string
	// RawCommand is the wire token as received: a numeric reply code or the
	// command verb.
	RawCommand string
	// Args are the positional parameters following the command.
	Args []string

	Prefix string
	Nick   string
	User   string
	Host   string
}

// Sender returns the best available identity for the message origin:
// the nick when present, otherwise the user field.
func (m Message) Sender() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.User
}

// fromWire converts a transport-level message into our Message shape.
func fromWire(m *irc.Message) Message {
	msg := Message{
		Command:    m.Command,
		RawCommand: m.Command,
		Args:       m.Params,
	}
	if m.Prefix != nil {
		msg.Prefix = m.Prefix.String()
		msg.Nick = m.Prefix.Name
		msg.User = m.Prefix.User
		msg.Host = m.Prefix.Host
	}
	return msg
}
