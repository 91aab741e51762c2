package live

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Handler customises what a connection does while admitted.
type Handler struct {
	// OnAdmit, if set, runs in its own goroutine after admission. Its
	// context is cancelled when the connection closes and Serve waits for
	// it to return.
	OnAdmit func(ctx context.Context, c *Conn)
	// OnText is called for each inbound frame, in arrival order.
	OnText func(ctx context.Context, c *Conn, text string)
}

// Serve owns c from handshake to close: admit, read until the peer goes
// away, then evict and announce departure. Only a handshake failure is
// returned; disconnects are the normal way out.
func (r *Registry) Serve(ctx context.Context, c *Conn, h Handler) error {
	if err := r.Admit(c); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		r.depart(c)
		wg.Wait()
	}()

	if h.OnAdmit != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnAdmit(ctx, c)
		}()
	}

	for {
		text, err := c.tr.ReadText()
		if err != nil {
			if errors.Is(err, ErrDisconnected) || c.State() == StateClosed {
				r.log.Debug("peer left", connValues(c))
			} else {
				r.log.Info("read failed, closing conn", connValues(c), zap.Error(err))
			}
			return nil
		}
		if h.OnText != nil {
			h.OnText(ctx, c, text)
		}
	}
}

func (r *Registry) depart(c *Conn) {
	r.Evict(c)
	if !c.Anonymous() {
		r.Broadcast(Left(c.Label))
	}
	if err := c.Close(); err != nil {
		r.log.Debug("close conn", connValues(c), zap.Error(err))
	}
}

// ChatHandler acknowledges each message to its sender, then relays it to
// every live connection.
func (r *Registry) ChatHandler() Handler {
	return Handler{
		OnText: func(_ context.Context, c *Conn, text string) {
			if err := r.Unicast(c, Ack(text)); err != nil {
				r.log.Warn("ack failed", connValues(c), zap.Error(err))
			}
			r.Broadcast(Said(c.Label, text))
		},
	}
}
