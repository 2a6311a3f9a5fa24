package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/picoha.go/pkg/framework"
	"github.com/robotalks/picoha.go/pkg/l0/comm"
	"github.com/robotalks/picoha.go/pkg/l0/gpio"
)

// Defaults of Bridge.
const (
	DefaultPollInterval = time.Second
	DefaultRetryDelay   = 3 * time.Second
	commandQueueSize    = 16
)

// Topics relative to an IO name.
const (
	TopicValueSet     = "cmds/value/set"
	TopicDirectionSet = "cmds/direction/set"
	TopicValue        = "atts/value"
	TopicDirection    = "atts/direction"
)

// GPIO is the adapter access used by Bridge. *comm.Client implements it.
type GPIO interface {
	Ping(ctx context.Context) error
	SetDirection(ctx context.Context, pin uint8, dir gpio.Dir) error
	Write(ctx context.Context, pin uint8, value gpio.Value) error
	Read(ctx context.Context, pin uint8) (gpio.Value, error)
}

// IO binds a named interface to an adapter pin.
type IO struct {
	Name string `toml:"name"`
	Pin  uint8  `toml:"pin"`
	// Direction is "in", "out", or one of the names accepted by
	// gpio.ParseDir.
	Direction string `toml:"direction"`
}

// ParseDirection maps bridge direction names. A plain "in" is a pull-up
// input.
func ParseDirection(s string) (gpio.Dir, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "in":
		return gpio.PullUpInput, nil
	case "out":
		return gpio.Output, nil
	}
	return gpio.ParseDir(s)
}

// DirectionName is the reverse of ParseDirection.
func DirectionName(d gpio.Dir) string {
	if d == gpio.Output {
		return "out"
	}
	return "in"
}

// ValuePayload is the JSON payload of value topics.
type ValuePayload struct {
	Value int `json:"value"`
}

// DirectionPayload is the JSON payload of direction topics.
type DirectionPayload struct {
	Direction string `json:"direction"`
}

// State is the connection state of a Bridge.
type State int

// States.
const (
	StateInit State = iota
	StateRunning
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateRunning:
		return "Running"
	case StateError:
		return "Error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type ioState struct {
	IO
	dir   gpio.Dir
	value gpio.Value
	// published is false until the current value is published.
	published bool
}

type command struct {
	io    *ioState
	isDir bool
	dir   gpio.Dir
	value gpio.Value
}

// Bridge exposes adapter IOs as MQTT topics. It is polled by a
// framework.Loop and subscribes the command topics when run.
type Bridge struct {
	Queue        *Queue
	GPIO         GPIO
	PollInterval time.Duration
	RetryDelay   time.Duration

	ios    []*ioState
	cmdCh  chan command
	state  State
	since  time.Time
	polled time.Time

	lock sync.Mutex
	subs []*Subscription
}

// NewBridge creates a Bridge.
func NewBridge(queue *Queue, g GPIO, ios []IO) (*Bridge, error) {
	b := &Bridge{
		Queue:        queue,
		GPIO:         g,
		PollInterval: DefaultPollInterval,
		RetryDelay:   DefaultRetryDelay,
		cmdCh:        make(chan command, commandQueueSize),
	}
	names := make(map[string]bool)
	for _, io := range ios {
		if io.Name == "" {
			return nil, fmt.Errorf("io on pin %d: missing name", io.Pin)
		}
		if names[io.Name] {
			return nil, fmt.Errorf("io %s: duplicated", io.Name)
		}
		names[io.Name] = true
		dir, err := ParseDirection(io.Direction)
		if err != nil {
			return nil, fmt.Errorf("io %s: %w", io.Name, err)
		}
		b.ios = append(b.ios, &ioState{IO: io, dir: dir})
	}
	return b, nil
}

// State returns the current state.
func (b *Bridge) State() State {
	return b.state
}

// Subscribe subscribes the command topics of all IOs.
func (b *Bridge) Subscribe() {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, s := range b.ios {
		s := s
		b.subs = append(b.subs,
			b.Queue.Sub(s.Name+"/"+TopicValueSet, func(topic string, payload []byte) {
				var p ValuePayload
				if err := json.Unmarshal(payload, &p); err != nil {
					glog.Errorf("%s: %v", topic, err)
					return
				}
				if p.Value != int(gpio.Low) && p.Value != int(gpio.High) {
					glog.Errorf("%s: invalid value %d", topic, p.Value)
					return
				}
				b.enqueue(command{io: s, value: gpio.Value(p.Value)})
			}),
			b.Queue.Sub(s.Name+"/"+TopicDirectionSet, func(topic string, payload []byte) {
				var p DirectionPayload
				if err := json.Unmarshal(payload, &p); err != nil {
					glog.Errorf("%s: %v", topic, err)
					return
				}
				dir, err := ParseDirection(p.Direction)
				if err != nil || p.Direction == "" {
					glog.Errorf("%s: invalid direction %q", topic, p.Direction)
					return
				}
				b.enqueue(command{io: s, isDir: true, dir: dir})
			}))
	}
}

// Unsubscribe closes all subscriptions.
func (b *Bridge) Unsubscribe() error {
	b.lock.Lock()
	subs := b.subs
	b.subs = nil
	b.lock.Unlock()
	var errs fx.AggregatedError
	for _, sub := range subs {
		errs.Add(sub.Close())
	}
	return errs.Aggregate()
}

// Run implements framework.Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	b.Subscribe()
	<-ctx.Done()
	b.Unsubscribe()
	return ctx.Err()
}

func (b *Bridge) enqueue(cmd command) {
	select {
	case b.cmdCh <- cmd:
	default:
		glog.Warningf("%s: command dropped, queue full", cmd.io.Name)
	}
}

// Poll implements framework.Poller.
func (b *Bridge) Poll(pc fx.PollContext) error {
	ctx, now := pc.Context(), pc.Time()
	switch b.state {
	case StateInit:
		if err := b.initialize(ctx); err != nil {
			return b.fail(now, err)
		}
		glog.Infof("adapter ready, %d io(s)", len(b.ios))
		b.state, b.polled = StateRunning, now
	case StateError:
		b.discardCommands()
		if now.Sub(b.since) >= b.RetryDelay {
			b.state = StateInit
			pc.TriggerNext()
		}
	case StateRunning:
		if err := b.processCommands(ctx); err != nil {
			return b.fail(now, err)
		}
		if now.Sub(b.polled) >= b.PollInterval {
			b.polled = now
			if err := b.pollInputs(ctx); err != nil {
				return b.fail(now, err)
			}
		}
	}
	return nil
}

func (b *Bridge) fail(now time.Time, err error) error {
	b.state, b.since = StateError, now
	return fmt.Errorf("adapter unreachable: %w", err)
}

func (b *Bridge) initialize(ctx context.Context) error {
	if err := b.GPIO.Ping(ctx); err != nil {
		return err
	}
	for _, s := range b.ios {
		if err := b.GPIO.SetDirection(ctx, s.Pin, s.dir); err != nil {
			return fmt.Errorf("io %s: %w", s.Name, err)
		}
		b.publishDirection(s)
		val, err := b.GPIO.Read(ctx, s.Pin)
		if err != nil {
			return fmt.Errorf("io %s: %w", s.Name, err)
		}
		s.value = val
		b.publishValue(s)
	}
	return nil
}

func (b *Bridge) discardCommands() {
	for {
		select {
		case cmd := <-b.cmdCh:
			glog.Errorf("%s: adapter unavailable, command discarded", cmd.io.Name)
		default:
			return
		}
	}
}

func (b *Bridge) processCommands(ctx context.Context) error {
	for {
		select {
		case cmd := <-b.cmdCh:
			if err := b.apply(ctx, cmd); err != nil {
				var cmdErr *comm.CommandError
				if !errors.As(err, &cmdErr) {
					return err
				}
				glog.Errorf("%s: %v", cmd.io.Name, err)
			}
		default:
			return nil
		}
	}
}

func (b *Bridge) apply(ctx context.Context, cmd command) error {
	s := cmd.io
	if cmd.isDir {
		if err := b.GPIO.SetDirection(ctx, s.Pin, cmd.dir); err != nil {
			return err
		}
		glog.Infof("%s: new direction %s", s.Name, cmd.dir)
		s.dir = cmd.dir
		b.publishDirection(s)
		// The level may change with the direction.
		s.published = false
		return nil
	}
	if err := b.GPIO.Write(ctx, s.Pin, cmd.value); err != nil {
		return err
	}
	glog.Infof("%s: new value %d", s.Name, cmd.value)
	s.value = cmd.value
	b.publishValue(s)
	return nil
}

func (b *Bridge) pollInputs(ctx context.Context) error {
	for _, s := range b.ios {
		if !s.dir.IsInput() && s.published {
			continue
		}
		val, err := b.GPIO.Read(ctx, s.Pin)
		if err != nil {
			var cmdErr *comm.CommandError
			if errors.As(err, &cmdErr) {
				glog.Errorf("%s: %v", s.Name, err)
				continue
			}
			return err
		}
		if !s.published || val != s.value {
			s.value = val
			b.publishValue(s)
		}
	}
	return nil
}

func (b *Bridge) publishValue(s *ioState) {
	payload, _ := json.Marshal(ValuePayload{Value: int(s.value)})
	b.Queue.PubWith(s.Name+"/"+TopicValue, payload, 0, true)
	s.published = true
}

func (b *Bridge) publishDirection(s *ioState) {
	payload, _ := json.Marshal(DirectionPayload{Direction: DirectionName(s.dir)})
	b.Queue.PubWith(s.Name+"/"+TopicDirection, payload, 0, true)
}
