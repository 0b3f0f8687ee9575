package main

import (
	"context"
	"time"
)

// pollInterval is the pause between long-poll fetches.
const pollInterval = time.Second

// UpdatePoller repeatedly fetches new events and hands each batch to a
// handler. The loop is cooperative and single-threaded: the long-poll fetch
// is the suspension point, and no other request should be issued on the same
// session while a poll is outstanding.
type UpdatePoller struct {
	poll     func(ctx context.Context) ([]EventMessage, error)
	handle   func(events []EventMessage)
	interval time.Duration
}

func newUpdatePoller(poll func(ctx context.Context) ([]EventMessage, error), handle func([]EventMessage)) *UpdatePoller {
	return &UpdatePoller{poll: poll, handle: handle, interval: pollInterval}
}

// Run loops until the context is cancelled or a poll fails. Every successful
// poll invokes the handler exactly once with the batch contents; an absent
// batch is delivered as an empty slice.
func (p *UpdatePoller) Run(ctx context.Context) error {
	for {
		events, err := p.poll(ctx)
		if err != nil {
			return err
		}
		if events == nil {
			events = []EventMessage{}
		}
		p.handle(events)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}
}
