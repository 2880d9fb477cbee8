// Package demosignals provides small concrete signal.Wait
// implementations used by the `ignite run` demo and by discovery.yaml
// type tags in example signal definitions.
package demosignals

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Sleep returns a Wait that succeeds after d, honoring cancellation.
func Sleep(d time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Fail returns a Wait that sleeps for d then fails with msg.
func Fail(d time.Duration, msg string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return errors.New(msg)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Never returns a Wait that blocks until ctx is done (used to exercise
// timeout and cancellation paths in demos and tests).
func Never() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
}

// Jittered returns a Wait that sleeps for base plus a random amount up
// to jitter, then succeeds.
func Jittered(base, jitter time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		d := base
		if jitter > 0 {
			d += time.Duration(rand.Int63n(int64(jitter)))
		}
		return Sleep(d)(ctx)
	}
}

// TCPDial returns a Wait that succeeds once a TCP connection to addr can
// be established, retrying every interval until ctx is done.
func TCPDial(dial func(ctx context.Context, addr string) error, addr string, interval time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := dial(ctx, addr); err == nil {
				return nil
			}
			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				return fmt.Errorf("dialing %s: %w", addr, ctx.Err())
			}
		}
	}
}
