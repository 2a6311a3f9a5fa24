package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/picoha.go/pkg/env/host"
	"github.com/robotalks/picoha.go/pkg/hw"
	"github.com/robotalks/picoha.go/pkg/l0/gpio"
)

type testPollContext struct {
	now       time.Time
	triggered bool
}

func (pc *testPollContext) Context() context.Context { return context.Background() }
func (pc *testPollContext) Time() time.Time          { return pc.now }
func (pc *testPollContext) Iteration() uint64        { return 1 }
func (pc *testPollContext) PriorityLevel() int       { return 2 }
func (pc *testPollContext) TriggerNext()             { pc.triggered = true }

func (pc *testPollContext) at(d time.Duration) *testPollContext {
	pc.now = time.Unix(1000, 0).Add(d)
	pc.triggered = false
	return pc
}

func newTestBridge(t *testing.T) (*Bridge, *testBroker, *hw.Sim, *host.Conn) {
	sim := hw.NewSim(nil)
	conf := host.NewConfig()
	conf.Timeout = time.Second
	conn := conf.ConnectLoopback(sim)
	t.Cleanup(func() { conn.Close() })

	broker := newTestBroker()
	b, err := NewBridge(&Queue{Broker: broker, TopicPrefix: "pza/"}, conn, []IO{
		{Name: "led", Pin: 25, Direction: "out"},
		{Name: "btn", Pin: 2, Direction: "in"},
	})
	require.NoError(t, err)
	b.Subscribe()
	return b, broker, sim, conn
}

func TestNewBridgeInvalid(t *testing.T) {
	_, err := NewBridge(nil, nil, []IO{{Pin: 1}})
	require.Error(t, err)
	_, err = NewBridge(nil, nil, []IO{{Name: "a"}, {Name: "a"}})
	require.Error(t, err)
	_, err = NewBridge(nil, nil, []IO{{Name: "a", Direction: "sideways"}})
	require.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	dir, err := ParseDirection("in")
	require.NoError(t, err)
	require.Equal(t, gpio.PullUpInput, dir)
	dir, err = ParseDirection("OUT")
	require.NoError(t, err)
	require.Equal(t, gpio.Output, dir)
	dir, err = ParseDirection("pulldown")
	require.NoError(t, err)
	require.Equal(t, gpio.PullDownInput, dir)
	require.Equal(t, "in", DirectionName(gpio.PullDownInput))
	require.Equal(t, "out", DirectionName(gpio.Output))
}

func TestBridge(t *testing.T) {
	b, broker, sim, _ := newTestBridge(t)
	pc := &testPollContext{}

	require.NoError(t, b.Poll(pc.at(0)))
	require.Equal(t, StateRunning, b.State())
	require.Equal(t, `{"direction":"out"}`, broker.last("pza/led/atts/direction"))
	require.Equal(t, `{"value":0}`, broker.last("pza/led/atts/value"))
	require.Equal(t, `{"direction":"in"}`, broker.last("pza/btn/atts/direction"))
	require.Equal(t, `{"value":1}`, broker.last("pza/btn/atts/value"))
	require.True(t, broker.published["pza/btn/atts/value"].retain)
	dir, err := sim.Direction(2)
	require.NoError(t, err)
	require.Equal(t, gpio.PullUpInput, dir)

	t.Run("value set", func(t *testing.T) {
		require.True(t, broker.deliver("pza/led/cmds/value/set", `{"value":1}`))
		require.NoError(t, b.Poll(pc.at(time.Millisecond)))
		val, err := sim.Value(25)
		require.NoError(t, err)
		require.Equal(t, gpio.High, val)
		require.Equal(t, `{"value":1}`, broker.last("pza/led/atts/value"))
	})

	t.Run("invalid commands", func(t *testing.T) {
		count := broker.pubCount
		broker.deliver("pza/led/cmds/value/set", `{"value":7}`)
		broker.deliver("pza/led/cmds/value/set", `not json`)
		broker.deliver("pza/led/cmds/direction/set", `{"direction":"sideways"}`)
		broker.deliver("pza/led/cmds/direction/set", `{}`)
		require.NoError(t, b.Poll(pc.at(2*time.Millisecond)))
		require.Equal(t, count, broker.pubCount)
	})

	t.Run("device error keeps running", func(t *testing.T) {
		require.True(t, broker.deliver("pza/btn/cmds/value/set", `{"value":0}`))
		require.NoError(t, b.Poll(pc.at(3*time.Millisecond)))
		require.Equal(t, StateRunning, b.State())
		require.Equal(t, `{"value":1}`, broker.last("pza/btn/atts/value"))
	})

	t.Run("input polling", func(t *testing.T) {
		require.NoError(t, sim.Drive(2, gpio.Low))
		require.NoError(t, b.Poll(pc.at(500*time.Millisecond)))
		require.Equal(t, `{"value":1}`, broker.last("pza/btn/atts/value"))
		require.NoError(t, b.Poll(pc.at(time.Second)))
		require.Equal(t, `{"value":0}`, broker.last("pza/btn/atts/value"))

		count := broker.pubCount
		require.NoError(t, b.Poll(pc.at(2*time.Second)))
		require.Equal(t, count, broker.pubCount)
	})

	t.Run("direction set", func(t *testing.T) {
		require.True(t, broker.deliver("pza/btn/cmds/direction/set", `{"direction":"out"}`))
		require.NoError(t, b.Poll(pc.at(2*time.Second+time.Millisecond)))
		dir, err := sim.Direction(2)
		require.NoError(t, err)
		require.Equal(t, gpio.Output, dir)
		require.Equal(t, `{"direction":"out"}`, broker.last("pza/btn/atts/direction"))

		require.True(t, broker.deliver("pza/btn/cmds/value/set", `{"value":1}`))
		require.NoError(t, b.Poll(pc.at(2*time.Second+2*time.Millisecond)))
		require.Equal(t, `{"value":1}`, broker.last("pza/btn/atts/value"))
	})
}

func TestBridgeRetry(t *testing.T) {
	b, broker, _, conn := newTestBridge(t)
	pc := &testPollContext{}

	require.NoError(t, b.Poll(pc.at(0)))
	require.Equal(t, StateRunning, b.State())

	require.NoError(t, conn.Close())
	require.True(t, broker.deliver("pza/led/cmds/value/set", `{"value":1}`))
	require.Error(t, b.Poll(pc.at(time.Millisecond)))
	require.Equal(t, StateError, b.State())

	require.NoError(t, b.Poll(pc.at(time.Second)))
	require.Equal(t, StateError, b.State())
	require.False(t, pc.triggered)

	require.NoError(t, b.Poll(pc.at(3*time.Second+time.Millisecond)))
	require.Equal(t, StateInit, b.State())
	require.True(t, pc.triggered)

	require.Error(t, b.Poll(pc.at(3*time.Second+2*time.Millisecond)))
	require.Equal(t, StateError, b.State())
}

func TestBridgeRunUnsubscribes(t *testing.T) {
	b, broker, _, _ := newTestBridge(t)
	require.NoError(t, b.Unsubscribe())
	require.Empty(t, broker.subs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	require.Eventually(t, func() bool {
		broker.lock.Lock()
		defer broker.lock.Unlock()
		return len(broker.subs) == 4
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Empty(t, broker.subs)
}
