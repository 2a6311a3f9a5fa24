package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Poller is invoked on every iteration of a Loop. It must not block.
type Poller interface {
	Poll(PollContext) error
}

// PollFunc is the func form of Poller.
type PollFunc func(PollContext) error

// Poll implements Poller.
func (f PollFunc) Poll(pc PollContext) error {
	return f(pc)
}

// PollContext provides the context of the current iteration.
type PollContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Iteration is the sequence number of the iteration, from 1.
	Iteration() uint64
	// PriorityLevel gets the current priority level.
	PriorityLevel() int

	LoopControl
}

// LoopControl exposes access to the polling loop.
type LoopControl interface {
	// TriggerNext schedules the next iteration to be executed
	// immediately after the current iteration.
	TriggerNext()
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 4

// Predefined priority levels, pollers at lower levels run first.
const (
	PrLvTop     int = 0
	PrLvInput   int = 1
	PrLvProcess int = 2
	PrLvIdle    int = PriorityLevels - 1
)
