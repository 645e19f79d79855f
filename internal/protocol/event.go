package protocol

import (
	"github.com/lox/mahjongforbots/internal/match"
	"github.com/lox/mahjongforbots/internal/supervisor"
)

// ForPlayer returns the form of ev that viewer may see. Private events are
// redacted for everyone but their owner; ok is false when nothing should be
// delivered.
func ForPlayer(ev match.Event, viewer match.PlayerID) (out match.Event, ok bool) {
	p, private := ev.(match.Private)
	if !private || p.Owner() == viewer {
		return ev, true
	}
	out = p.Redact()
	return out, out != nil
}

// EventMessage frames env for viewer. ok is false when the event is not
// delivered to viewer at all.
func EventMessage(env supervisor.Envelope, viewer match.PlayerID) (msg *Message, ok bool, err error) {
	ev, ok := ForPlayer(env.Event, viewer)
	if !ok {
		return nil, false, nil
	}
	msg, err = NewMessage(MessageType(ev.EventType()), env.MatchID, ev)
	if err != nil {
		return nil, false, err
	}
	msg.Seq = env.Seq
	msg.At = env.At
	return msg, true, nil
}
