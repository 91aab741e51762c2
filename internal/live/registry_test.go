package live

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func admitted(t *testing.T, reg *Registry, label string) (*Conn, *fakeTransport) {
	t.Helper()
	tr := newFake()
	c := NewConn(label, tr)
	require.NoError(t, reg.Admit(c))
	return c, tr
}

func TestRegistry_AdmitEvict(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(zaptest.NewLogger(t))

	a, _ := admitted(t, reg, "A")
	b, _ := admitted(t, reg, "B")
	c, _ := admitted(t, reg, "C")
	req.Equal(3, reg.Len())
	req.Equal(StateAdmitted, a.State())

	reg.Evict(b)
	reg.Evict(b)
	reg.Evict(NewConn("never", newFake()))

	req.Equal(2, reg.Len())
	req.True(reg.Contains(a))
	req.False(reg.Contains(b))
	req.True(reg.Contains(c))
}

func TestRegistry_AdmitTwiceIsOneMember(t *testing.T) {
	reg := NewRegistry(nil)
	c, _ := admitted(t, reg, "A")
	require.NoError(t, reg.Admit(c))
	require.Equal(t, 1, reg.Len())
}

func TestRegistry_AdmitFailed(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(zaptest.NewLogger(t))

	tr := newFake()
	tr.acceptErr = errors.New("bad upgrade")
	c := NewConn("A", tr)

	err := reg.Admit(c)
	req.ErrorIs(err, ErrAdmitFailed)
	req.ErrorContains(err, "bad upgrade")
	req.Zero(reg.Len())
	req.Equal(StatePending, c.State())
}

// Labels come from the client and are not unique; two conns may share one.
func TestRegistry_LabelCollisionKeepsBoth(t *testing.T) {
	reg := NewRegistry(nil)
	a1, tr1 := admitted(t, reg, "same")
	_, tr2 := admitted(t, reg, "same")
	require.Equal(t, 2, reg.Len())

	reg.Evict(a1)
	require.Equal(t, 1, reg.Len())
	require.Equal(t, 1, reg.Broadcast(Said("same", "x")))
	require.Empty(t, tr1.messages())
	require.Equal(t, []string{"Client same says: x"}, tr2.messages())
}

func TestRegistry_Unicast(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(zaptest.NewLogger(t))
	a, trA := admitted(t, reg, "A")
	_, trB := admitted(t, reg, "B")

	req.NoError(reg.Unicast(a, Ack("hi")))
	req.Equal([]string{"You wrote: hi"}, trA.messages())
	req.Empty(trB.messages())

	trA.failWrites(errors.New("broken pipe"))
	err := reg.Unicast(a, Ack("again"))
	req.ErrorIs(err, ErrDeliveryFailed)
	req.True(reg.Contains(a), "write failure must not evict")
}

func TestRegistry_BroadcastSkipsFailingRecipient(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(zaptest.NewLogger(t))

	const n, bad = 5, 2
	trs := make([]*fakeTransport, n)
	for i := range trs {
		_, trs[i] = admitted(t, reg, fmt.Sprint(i))
	}
	trs[bad].failWrites(errors.New("reset by peer"))

	got := reg.Broadcast(RecordID(7))

	req.Equal(n-1, got)
	for i, tr := range trs {
		if i == bad {
			req.Empty(tr.messages())
			continue
		}
		req.Equal([]string{"[7]"}, tr.messages(), "recipient %d", i)
	}
	req.Equal(n, reg.Len())
}

func TestRegistry_NoDeliveryAfterEvict(t *testing.T) {
	reg := NewRegistry(nil)
	a, trA := admitted(t, reg, "A")
	_, trB := admitted(t, reg, "B")

	reg.Evict(a)
	require.Equal(t, 1, reg.Broadcast(Said("B", "after")))
	require.Empty(t, trA.messages())
	require.Equal(t, []string{"Client B says: after"}, trB.messages())
}

func TestRegistry_ClosedConnFailsDelivery(t *testing.T) {
	reg := NewRegistry(nil)
	a, trA := admitted(t, reg, "A")
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	err := reg.Unicast(a, Ack("x"))
	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.ErrorIs(t, err, ErrClosed)
	require.Empty(t, trA.messages())
	require.Equal(t, StateClosed, a.State())
}

func TestRegistry_SlowPeerDoesNotBlockMembership(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(zaptest.NewLogger(t))

	slow := newSlow()
	req.NoError(reg.Admit(NewConn("slow", slow)))
	other, _ := admitted(t, reg, "other")

	done := make(chan int)
	go func() { done <- reg.Broadcast(Said("x", "y")) }()
	<-slow.entered

	// The broadcast is parked inside a write; membership must still move.
	late, trLate := admitted(t, reg, "late")
	reg.Evict(other)
	req.Equal(2, reg.Len())

	close(slow.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast did not finish")
	}
	req.True(reg.Contains(late))
	req.Empty(trLate.messages(), "conn admitted after the snapshot is not a target")
}

func TestRegistry_ConcurrentMembership(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(nil)

	const n = 200
	conns := make([]*Conn, n)
	for i := range conns {
		conns[i] = NewConn(fmt.Sprint(i), newFake())
	}

	var wg sync.WaitGroup
	for i, c := range conns {
		wg.Add(1)
		go func(i int, c *Conn) {
			defer wg.Done()
			assert.NoError(t, reg.Admit(c))
			if i%2 == 0 {
				reg.Evict(c)
				reg.Evict(c)
			}
		}(i, c)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg.Broadcast(Said("bg", fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()

	req.Equal(n/2, reg.Len())
	seen := map[string]bool{}
	for _, c := range reg.Snapshot() {
		req.False(seen[c.Label], "duplicate %s", c.Label)
		seen[c.Label] = true
	}
	for i, c := range conns {
		req.Equal(i%2 != 0, reg.Contains(c), "conn %d", i)
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry(nil)
	a, _ := admitted(t, reg, "A")
	b, _ := admitted(t, reg, "B")

	require.Equal(t, 2, reg.CloseAll())
	require.Equal(t, StateClosed, a.State())
	require.Equal(t, StateClosed, b.State())
}

func TestRegistry_LogsGroupConnFields(t *testing.T) {
	req := require.New(t)
	core, logs := observer.New(zap.DebugLevel)
	reg := NewRegistry(zap.New(core))

	c, tr := admitted(t, reg, "A")
	tr.failWrites(errors.New("broken pipe"))
	reg.Broadcast(Said("A", "hi"))

	failed := logs.FilterMessage("broadcast delivery failed").All()
	req.Len(failed, 1)
	values, ok := failed[0].ContextMap()["values"].(map[string]any)
	req.True(ok)
	req.Equal(c.ID.String(), values["conn_id"])
	req.Equal("A", values["label"])
	req.Equal("peer", values["origin"])

	admittedLog := logs.FilterMessage("conn admitted").All()
	req.Len(admittedLog, 1)
	req.Equal(int64(1), admittedLog[0].ContextMap()["values"].(map[string]any)["live"])
}
