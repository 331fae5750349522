package realtime

import (
	"sync"

	"github.com/rs/zerolog"
)

// Presence pushes the full online set to every live connection.
type Presence struct {
	reg *Registry
	log zerolog.Logger

	// mu orders broadcasts: the snapshot is taken and sent under the lock,
	// so a later broadcast never carries an older set.
	mu sync.Mutex
}

// NewPresence returns a broadcaster over reg.
func NewPresence(reg *Registry, log zerolog.Logger) *Presence {
	return &Presence{reg: reg, log: log}
}

// Broadcast sends online_users to every connection and returns the snapshot
// that was sent.
func (p *Presence) Broadcast() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := p.reg.Snapshot()
	ev := onlineUsers(ids)
	conns := p.reg.Live()
	dropped := 0
	for _, c := range conns {
		if !send(c, ev) {
			dropped++
		}
	}
	p.log.Debug().
		Int("online", len(ids)).
		Int("recipients", len(conns)).
		Int("dropped", dropped).
		Msg("presence broadcast")
	return ids
}
