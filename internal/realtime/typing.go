package realtime

import "github.com/rs/zerolog"

// Typing relays ephemeral typing signals. Nothing is stored.
type Typing struct {
	reg *Registry
	log zerolog.Logger
}

// NewTyping returns a relay over reg.
func NewTyping(reg *Registry, log zerolog.Logger) *Typing {
	return &Typing{reg: reg, log: log}
}

// Relay sends user_typing (or user_stop_typing) with from to the connection
// registered for to. It reports whether the signal was queued; an offline
// target is silently dropped.
func (t *Typing) Relay(from, to string, isTyping bool) bool {
	c, ok := t.reg.Lookup(to)
	if !ok {
		t.log.Trace().Str("from", from).Str("to", to).Msg("typing target offline")
		return false
	}
	name := EventUserStopTyping
	if isTyping {
		name = EventUserTyping
	}
	return send(c, Event{Name: name, Data: TypingPayload{From: from}})
}
