package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status is the delivery state of a message. The zero value is invalid; the
// three valid states are strictly ordered: StatusSent < StatusDelivered < StatusSeen.
//
// Status is persisted as its integer rank so that ordering checks can be
// pushed into SQL (e.g. "status < ?") and serialized on the wire as its name.
type Status uint8

const (
	StatusSent Status = iota + 1
	StatusDelivered
	StatusSeen
)

var statusNames = map[Status]string{
	StatusSent:      "sent",
	StatusDelivered: "delivered",
	StatusSeen:      "seen",
}

// ParseStatus maps a wire name (case-insensitive) to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sent":
		return StatusSent, nil
	case "delivered":
		return StatusDelivered, nil
	case "seen":
		return StatusSeen, nil
	}
	return 0, fmt.Errorf("unknown message status %q", s)
}

// Valid reports whether s is one of the three defined states.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// String returns the wire name ("sent", "delivered", "seen").
func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Rank is the position of s in the delivery ordering (0 when invalid).
func (s Status) Rank() int {
	if !s.Valid() {
		return 0
	}
	return int(s)
}

// Less reports whether s comes strictly before o in the delivery ordering.
func (s Status) Less(o Status) bool { return s.Rank() < o.Rank() }

// CanAdvanceTo reports whether moving from s to next is a forward transition.
// Re-applying the same status is not an advance.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.Valid() && s.Less(next)
}

// MarshalJSON encodes the status as its name.
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid status %d", uint8(s))
	}
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status from its name.
func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return int64(s), nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*s = Status(v)
	case int:
		*s = Status(v)
	case []byte:
		return s.Scan(string(v))
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return s.Scan(int64(n))
		}
		parsed, err := ParseStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case nil:
		*s = 0
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	if !s.Valid() {
		return fmt.Errorf("invalid status rank %d", uint8(*s))
	}
	return nil
}
