//go:build !deadlock_test

// Package lock provides mutex types which can be swapped with deadlock
// detecting versions by building with 'deadlock_test' tag
package lock

import "sync"

type RWMutex = sync.RWMutex

type Mutex = sync.Mutex
