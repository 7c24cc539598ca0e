package search

import (
	"math/rand"
	"sync"
)

// Rotation hands out searx instances round-robin, starting at a random
// offset so retries spread load instead of hammering one failing mirror.
type Rotation struct {
	mu        sync.Mutex
	instances []string
	cursor    int
}

func NewRotation(instances []string) *Rotation {
	r := &Rotation{instances: instances}
	if len(instances) > 0 {
		r.cursor = rand.Intn(len(instances))
	}
	return r
}

// newRotationAt pins the starting cursor, for deterministic tests.
func newRotationAt(instances []string, start int) *Rotation {
	r := &Rotation{instances: instances}
	if len(instances) > 0 {
		r.cursor = start % len(instances)
	}
	return r
}

// Next returns the current instance and advances the cursor circularly.
func (r *Rotation) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.instances) == 0 {
		return ""
	}
	instance := r.instances[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.instances)
	return instance
}

func (r *Rotation) Size() int {
	return len(r.instances)
}
