package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type peer struct {
	conn *Conn
	tr   *fakeTransport
	done chan error
}

func serve(t *testing.T, reg *Registry, label string, h Handler) *peer {
	t.Helper()
	tr := newFake()
	p := &peer{conn: NewConn(label, tr), tr: tr, done: make(chan error, 1)}
	go func() { p.done <- reg.Serve(context.Background(), p.conn, h) }()
	require.Eventually(t, func() bool { return reg.Contains(p.conn) }, waitFor, tick)
	return p
}

func (p *peer) hasMessage(text string) bool {
	for _, m := range p.tr.messages() {
		if m == text {
			return true
		}
	}
	return false
}

func (p *peer) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-p.done:
		return err
	case <-time.After(waitFor):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestServe_ChatScenario(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(zaptest.NewLogger(t))
	h := reg.ChatHandler()

	a := serve(t, reg, "A", h)
	b := serve(t, reg, "B", h)
	c := serve(t, reg, "C", h)

	a.tr.inbox <- "hi"

	req.Eventually(func() bool {
		return b.hasMessage("Client A says: hi") && c.hasMessage("Client A says: hi")
	}, waitFor, tick)
	req.Eventually(func() bool { return len(a.tr.messages()) == 2 }, waitFor, tick)
	req.Equal([]string{"You wrote: hi", "Client A says: hi"}, a.tr.messages())

	t.Run("departure", func(t *testing.T) {
		req := require.New(t)
		close(a.tr.inbox)
		req.NoError(a.wait(t))

		req.False(reg.Contains(a.conn))
		req.Equal(StateClosed, a.conn.State())
		req.Eventually(func() bool {
			return b.hasMessage("Client A left the chat") && c.hasMessage("Client A left the chat")
		}, waitFor, tick)
		req.False(a.hasMessage("Client A left the chat"))

		req.Equal(2, reg.Broadcast(RecordID(9)))
		req.False(a.hasMessage("[9]"))
		req.True(b.hasMessage("[9]"))
		req.True(c.hasMessage("[9]"))
	})
}

func TestServe_AdmitFailed(t *testing.T) {
	reg := NewRegistry(nil)
	tr := newFake()
	tr.acceptErr = errors.New("handshake")

	err := reg.Serve(context.Background(), NewConn("A", tr), reg.ChatHandler())
	require.ErrorIs(t, err, ErrAdmitFailed)
	require.Zero(t, reg.Len())
}

func TestServe_ReadErrorEvictsAndAnnounces(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(zaptest.NewLogger(t))
	a := serve(t, reg, "A", reg.ChatHandler())
	b := serve(t, reg, "B", reg.ChatHandler())

	a.tr.readErr <- errors.New("connection reset")
	req.NoError(a.wait(t))

	req.Equal(1, reg.Len())
	req.Eventually(func() bool { return b.hasMessage("Client A left the chat") }, waitFor, tick)
}

func TestServe_WriteFailureKeepsLoopAlive(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(zaptest.NewLogger(t))
	a := serve(t, reg, "A", reg.ChatHandler())
	b := serve(t, reg, "B", reg.ChatHandler())

	a.tr.failWrites(errors.New("broken pipe"))
	a.tr.inbox <- "one"
	a.tr.inbox <- "two"

	req.Eventually(func() bool {
		return b.hasMessage("Client A says: one") && b.hasMessage("Client A says: two")
	}, waitFor, tick)
	req.True(reg.Contains(a.conn))
}

func TestServe_AnonymousLeavesQuietly(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)
	anon := serve(t, reg, "", Handler{})
	b := serve(t, reg, "B", reg.ChatHandler())

	anon.tr.inbox <- "ignored"
	close(anon.tr.inbox)
	req.NoError(anon.wait(t))

	req.Equal(1, reg.Len())
	req.Empty(b.tr.messages())
}

func TestServe_OnAdmitStopsWithConn(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)

	var started, stopped atomic.Bool
	p := serve(t, reg, "", Handler{
		OnAdmit: func(ctx context.Context, c *Conn) {
			started.Store(true)
			<-ctx.Done()
			stopped.Store(true)
		},
	})
	req.Eventually(started.Load, waitFor, tick)

	close(p.tr.inbox)
	req.NoError(p.wait(t))
	req.True(stopped.Load(), "Serve returned before OnAdmit finished")
}

func TestServe_CloseAllEndsReadLoops(t *testing.T) {
	reg := NewRegistry(nil)
	a := serve(t, reg, "A", reg.ChatHandler())
	b := serve(t, reg, "B", reg.ChatHandler())

	reg.CloseAll()
	require.NoError(t, a.wait(t))
	require.NoError(t, b.wait(t))
	require.Zero(t, reg.Len())
}
