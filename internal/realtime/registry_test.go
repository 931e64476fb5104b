package realtime_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime/realtimetest"
)

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	reg := realtime.NewRegistry()
	c := realtimetest.NewConn("u1")

	reg.Register("u1", c)
	reg.Register("u1", c)

	assert.Len(t, reg.ConnectionsFor("u1"), 1)
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Online("u1"))
}

func TestRegistry_MultipleConnectionsPerUser(t *testing.T) {
	reg := realtime.NewRegistry()
	tab1 := realtimetest.NewConn("u1")
	tab2 := realtimetest.NewConn("u1")
	other := realtimetest.NewConn("u2")

	reg.Register("u1", tab1)
	reg.Register("u1", tab2)
	reg.Register("u2", other)

	assert.Len(t, reg.ConnectionsFor("u1"), 2)
	assert.Equal(t, []string{"u1", "u2"}, reg.Users())
	assert.Equal(t, 3, reg.Count())
}

func TestRegistry_UnregisterDropsEmptyUser(t *testing.T) {
	reg := realtime.NewRegistry()
	tab1 := realtimetest.NewConn("u1")
	tab2 := realtimetest.NewConn("u1")
	reg.Register("u1", tab1)
	reg.Register("u1", tab2)

	reg.Unregister("u1", tab1.ID())
	assert.Len(t, reg.ConnectionsFor("u1"), 1)

	reg.Unregister("u1", tab2.ID())
	assert.Empty(t, reg.ConnectionsFor("u1"))
	assert.False(t, reg.Online("u1"))
	assert.Empty(t, reg.Users())

	// Unknown pairs are a no-op.
	reg.Unregister("u1", tab2.ID())
	reg.Unregister("ghost", "nope")
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_ConnectionsForUnknownUserIsEmpty(t *testing.T) {
	reg := realtime.NewRegistry()
	conns := reg.ConnectionsFor("nobody")
	require.NotNil(t, conns)
	assert.Empty(t, conns)
}

func TestRegistry_PushSkipsAndContinuesPastFailures(t *testing.T) {
	reg := realtime.NewRegistry()
	origin := realtimetest.NewConn("u1")
	full := realtimetest.NewConn("u1")
	full.Capacity = 1
	ok := realtimetest.NewConn("u1")
	for _, c := range []*realtimetest.Conn{origin, full, ok} {
		reg.Register("u1", c)
	}
	// Fill the slow connection first.
	require.NoError(t, full.Send(realtime.ErrorEvent{Message: "filler"}))

	n := reg.Push("u1", realtime.MessageRead{ConversationID: "c1", MessageID: "m1", ReadBy: "u2"}, origin.ID())

	assert.Equal(t, 1, n, "only the healthy non-skipped connection accepts")
	assert.Empty(t, origin.Events())
	assert.Len(t, ok.OfType(realtime.TypeMessageRead), 1)
	closed, code := full.Closed()
	assert.True(t, closed)
	assert.Equal(t, realtime.CloseSlowConsumer, code)
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := realtime.NewRegistry()
	a := realtimetest.NewConn("a")
	b := realtimetest.NewConn("b")
	reg.Register("a", a)
	reg.Register("b", b)

	reg.CloseAll(realtime.CloseShutdown, "shutdown")

	assert.Equal(t, 0, reg.Count())
	for _, c := range []*realtimetest.Conn{a, b} {
		closed, code := c.Closed()
		assert.True(t, closed)
		assert.Equal(t, realtime.CloseShutdown, code)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := realtime.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := realtimetest.NewConn("u")
			reg.Register("u", c)
			_ = reg.ConnectionsFor("u")
			reg.Push("u", realtime.ErrorEvent{Message: "x"}, "")
			reg.Unregister("u", c.ID())
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, reg.Count())
	assert.False(t, reg.Online("u"))
}
