package realtime

import "sync/atomic"

// Conn is one live client connection as seen by the core.
//
// Send must never block: implementations enqueue into a bounded buffer and
// return false when the event could not be queued (buffer full or closed).
type Conn interface {
	ID() uint64
	Send(ev Event) bool
	Close() error
}

var connSeq atomic.Uint64

// NextConnID returns a process-unique connection id. Ids start at 1.
func NextConnID() uint64 { return connSeq.Add(1) }
