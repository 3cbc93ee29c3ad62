package gateway

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeFailed   Outcome = "failed"
)

type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

// Await runs call with a deadline of limit and returns whichever comes first:
// the call's result or the deadline. A call still running at the deadline is
// abandoned; its context is cancelled but Await does not wait for it.
func Await[T any](ctx context.Context, limit time.Duration, call func(context.Context) (T, error)) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan Result[T], 1)
	go func() {
		value, err := call(ctx)
		if err != nil {
			done <- Result[T]{Outcome: OutcomeFailed, Err: err}
			return
		}
		done <- Result[T]{Value: value, Outcome: OutcomeOK}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return Result[T]{Outcome: OutcomeTimedOut, Err: ctx.Err()}
	}
}
