package framework

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopPriorityOrder(t *testing.T) {
	var order []int
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := NewLoop()
	loop.AddPoller(PrLvIdle, PollFunc(func(pc PollContext) error {
		order = append(order, pc.PriorityLevel())
		cancel()
		return nil
	}))
	loop.AddPoller(PrLvInput, PollFunc(func(pc PollContext) error {
		order = append(order, pc.PriorityLevel())
		return nil
	}))
	require.Equal(t, context.Canceled, loop.Run(ctx))
	require.Equal(t, []int{PrLvInput, PrLvIdle}, order[:2])
}

func TestLoopPollerErrorEndsLoop(t *testing.T) {
	errBoom := errors.New("boom")
	var count uint64
	loop := NewLoop()
	loop.AddPoller(PrLvProcess, PollFunc(func(pc PollContext) error {
		if atomic.AddUint64(&count, 1) == 3 {
			require.Equal(t, uint64(3), pc.Iteration())
			return errBoom
		}
		return nil
	}))
	require.Equal(t, errBoom, loop.Run(context.Background()))
}

func TestLoopOnError(t *testing.T) {
	errBoom := errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var count int
	loop := NewLoop()
	loop.OnError = LogErrors
	loop.AddPoller(PrLvProcess, PollFunc(func(pc PollContext) error {
		count++
		if count > 3 {
			cancel()
		}
		return errBoom
	}))
	require.Equal(t, context.Canceled, loop.Run(ctx))
	require.True(t, count > 3)
}

func TestLoopTriggerNext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := NewLoop()
	loop.Interval = time.Hour
	loop.AddPoller(PrLvProcess, PollFunc(func(pc PollContext) error {
		if pc.Iteration() < 5 {
			pc.TriggerNext()
		} else {
			cancel()
		}
		return nil
	}))
	loop.TriggerNext()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	select {
	case err := <-done:
		require.Equal(t, context.Canceled, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop not triggered")
	}
}

func TestLoopRunnerEnds(t *testing.T) {
	errEOF := errors.New("eof")
	loop := NewLoop()
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		return errEOF
	}))
	err := loop.Run(context.Background())
	require.True(t, errors.Is(err, errEOF))
}

func TestRunnerAggregatesErrors(t *testing.T) {
	err1, err2 := errors.New("one"), errors.New("two")
	r := NewRunner()
	r.Go(
		NamedRun("one", RunFunc(func(context.Context) error { return err1 })),
		RunFunc(func(context.Context) error { return context.Canceled }),
		RunFunc(func(context.Context) error { return err2 }),
	)
	err := r.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, err1))
	require.True(t, errors.Is(err, err2))
	var agg *AggregatedError
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Errors, 2)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())
	errs.Add(errors.New("a"), nil, errors.New("b"))
	require.EqualError(t, errs.Aggregate(), "Multiple errors:\na\nb")
}

type testCloser struct {
	closed int32
	ch     chan struct{}
}

func (c *testCloser) Close() error {
	if atomic.AddInt32(&c.closed, 1) == 1 {
		close(c.ch)
	}
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &testCloser{ch: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	go cancel()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.ch
		return errors.New("closed")
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&c.closed))

	c = &testCloser{ch: make(chan struct{})}
	err = RunWithContextCloser(context.Background(), c, func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&c.closed))
}
