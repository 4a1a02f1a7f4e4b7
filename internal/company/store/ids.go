package store

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces a fresh identifier that differs from every identifier
// it produced before in this process.
type IDGenerator func() string

// UUIDGenerator returns random version 4 UUID strings.
func UUIDGenerator() string {
	return uuid.NewString()
}

// NewSequence returns a deterministic generator yielding prefix-1, prefix-2, ...
func NewSequence(prefix string) IDGenerator {
	var n atomic.Uint64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}
