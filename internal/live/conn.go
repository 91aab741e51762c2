package live

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	ErrAdmitFailed    = errors.New("admit failed")
	ErrDeliveryFailed = errors.New("delivery failed")
	ErrDisconnected   = errors.New("peer disconnected")
	ErrClosed         = errors.New("connection closed")
)

// Transport abstracts the wire under a Conn so the registry never imports
// the websocket package.
type Transport interface {
	// Accept performs the transport handshake (e.g. the HTTP upgrade).
	Accept() error
	// ReadText blocks for the next inbound frame. A clean close from the
	// peer must be reported as an error wrapping ErrDisconnected.
	ReadText() (string, error)
	WriteText(text string) error
	Close() error
}

type State int32

const (
	StatePending State = iota
	StateAdmitted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAdmitted:
		return "admitted"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn is one peer session. ID is assigned here and is the registry key;
// Label is whatever the client asked to be called and may collide.
type Conn struct {
	ID    uuid.UUID
	Label string

	tr        Transport
	state     atomic.Int32
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func NewConn(label string, tr Transport) *Conn {
	return &Conn{ID: uuid.New(), Label: label, tr: tr}
}

func (c *Conn) State() State { return State(c.state.Load()) }

// Anonymous conns are evicted without a departure notice.
func (c *Conn) Anonymous() bool { return c.Label == "" }

func (c *Conn) write(text string) error {
	if c.State() == StateClosed {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.tr.WriteText(text)
}

// Close marks the conn closed and releases the transport. Safe to call more
// than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		err = c.tr.Close()
	})
	return err
}
