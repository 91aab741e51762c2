package live

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zoravur/bookshelf-live/internal/logutil"
)

// Registry is the set of admitted connections. Membership changes take the
// write lock; Broadcast only holds the read lock long enough to copy the set.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Conn
	log   *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{conns: make(map[uuid.UUID]*Conn), log: log}
}

// Admit runs the transport handshake and adds c to the live set. If the
// handshake fails c is never added.
func (r *Registry) Admit(c *Conn) error {
	if err := c.tr.Accept(); err != nil {
		return fmt.Errorf("%w: %w", ErrAdmitFailed, err)
	}
	r.mu.Lock()
	r.conns[c.ID] = c
	n := len(r.conns)
	r.mu.Unlock()

	c.state.CompareAndSwap(int32(StatePending), int32(StateAdmitted))
	r.log.Debug("conn admitted", connValues(c, zap.Int("live", n)))
	return nil
}

// Evict removes c. Evicting an absent conn is a no-op.
func (r *Registry) Evict(c *Conn) {
	r.mu.Lock()
	_, ok := r.conns[c.ID]
	delete(r.conns, c.ID)
	n := len(r.conns)
	r.mu.Unlock()

	if ok {
		r.log.Debug("conn evicted", connValues(c, zap.Int("live", n)))
	}
}

// Unicast delivers msg to c only. A failed write is returned, not acted on.
func (r *Registry) Unicast(c *Conn, msg Message) error {
	if err := c.write(msg.Text); err != nil {
		return fmt.Errorf("%w: conn %s: %w", ErrDeliveryFailed, c.ID, err)
	}
	return nil
}

// Broadcast delivers msg to every conn present when the call starts and
// returns how many writes succeeded. Failing recipients are logged and
// skipped.
func (r *Registry) Broadcast(msg Message) int {
	targets := r.Snapshot()

	delivered := 0
	for _, c := range targets {
		if err := r.Unicast(c, msg); err != nil {
			r.log.Warn("broadcast delivery failed",
				connValues(c, zap.Stringer("origin", msg.Origin)),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}

// Snapshot copies the current membership.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Contains(c *Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[c.ID]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll closes every live transport so their read loops exit and evict
// themselves. Used on process shutdown only.
func (r *Registry) CloseAll() int {
	conns := r.Snapshot()
	for _, c := range conns {
		if err := c.Close(); err != nil {
			r.log.Debug("close on shutdown", connValues(c), zap.Error(err))
		}
	}
	return len(conns)
}

// connValues groups the fields that identify c, plus any extras.
func connValues(c *Conn, extra ...zap.Field) zap.Field {
	fields := append([]zap.Field{
		zap.Stringer("conn_id", c.ID),
		zap.String("label", c.Label),
	}, extra...)
	return logutil.Values(fields...)
}
