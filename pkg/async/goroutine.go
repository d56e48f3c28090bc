// Package async provides a panic-safe wrapper for fire-and-forget work.
// The session layer uses it for the post-login feature refresh, which must
// never block or crash the caller.
package async

import (
	"context"
	"log"
	"runtime/debug"
	"time"
)

// SafeGo runs fn in a goroutine with panic recovery, a timeout, and error
// logging. The goroutine is detached from the parent context's cancellation:
// a login request finishing must not cancel the refresh it kicked off.
func SafeGo(timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("[async] panic in %s: %v\n%s", taskName, r, debug.Stack())
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("[async] %s: %v", taskName, err)
		}
	}()
}
