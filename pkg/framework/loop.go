package framework

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the polling interval when Loop.Interval is zero.
const DefaultInterval = time.Millisecond

// Loop polls registered pollers at a fixed interval, in priority order.
type Loop struct {
	Interval time.Duration
	// OnError decides what a poller error does. The loop stops with the
	// returned error, or carries on when it returns nil. Without OnError
	// any poller error stops the loop.
	OnError func(error) error

	pollers [PriorityLevels][]Poller
	runners []Runnable

	lock      sync.Mutex
	wakeUpCh  chan struct{}
	iteration uint64
}

type loopIteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	seq           uint64
	priorityLevel int
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval, wakeUpCh: make(chan struct{}, 1)}
}

// AddPoller registers pollers at a priority level. Pollers which are also
// Runnable are started when the loop runs.
func (l *Loop) AddPoller(priorityLevel int, pollers ...Poller) *Loop {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.pollers[priorityLevel] = append(l.pollers[priorityLevel], pollers...)
	for _, p := range pollers {
		if runner, ok := p.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementations started along with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.lock.Lock()
	l.runners = append(l.runners, runnables...)
	l.lock.Unlock()
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	l.lock.Lock()
	if l.wakeUpCh == nil {
		l.wakeUpCh = make(chan struct{}, 1)
	}
	runners := l.runners
	l.lock.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runner := NewRunnerWith(ctx)
	runner.Go(runners...)
	runnerErrCh := make(chan error, 1)
	if len(runners) > 0 {
		go func() { runnerErrCh <- runner.Wait() }()
	}

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if len(runners) > 0 {
				<-runnerErrCh
			}
			return ctx.Err()
		case err := <-runnerErrCh:
			// all background runners ended.
			if err == nil {
				err = context.Canceled
			}
			return err
		case <-ticker.C:
		case <-l.wakeUpCh:
		}
		if err := l.runIteration(ctx); err != nil {
			cancel()
			if len(runners) > 0 {
				<-runnerErrCh
			}
			return err
		}
	}
}

// RunOrFail is intended to be used in main to simply run the loop.
func (l *Loop) RunOrFail(ctx context.Context) {
	if err := l.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalln(err)
	}
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

func (l *Loop) runIteration(ctx context.Context) error {
	l.lock.Lock()
	l.iteration++
	iter := &loopIteration{Loop: l, ctx: ctx, time: time.Now(), seq: l.iteration}
	pollers := l.pollers
	l.lock.Unlock()
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		for _, p := range pollers[i] {
			err := p.Poll(iter)
			if err == nil {
				continue
			}
			if l.OnError == nil {
				return err
			}
			if err = l.OnError(err); err != nil {
				return err
			}
		}
	}
	return nil
}

// LogErrors is an OnError handler which logs and keeps the loop running.
func LogErrors(err error) error {
	glog.Errorf("poller error: %v", err)
	return nil
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) Iteration() uint64 {
	return t.seq
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}
