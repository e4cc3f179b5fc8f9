//go:build deadlock_test

package lock

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

func init() {
	// git operations can hold the lock for a while
	deadlock.Opts.DeadlockTimeout = 5 * time.Minute
}

type RWMutex = deadlock.RWMutex

type Mutex = deadlock.Mutex
