// Package concurrency implements the gateway's two non-blocking admission
// gates: a single global downstream semaphore, and a per-(route, upstream
// key digest) upstream semaphore created lazily on first use.
package concurrency

import "sync"

// Permit is a handle released exactly once on completion or cancellation of
// the request it was acquired for. The zero Permit's Release is a no-op, so
// callers may hold an unconditional "no cap configured" permit uniformly.
type Permit struct {
	release func()
	once    *sync.Once
}

// Release returns the permit to its semaphore. Safe to call more than once;
// only the first call has effect.
func (p Permit) Release() {
	if p.release == nil {
		return
	}
	p.once.Do(p.release)
}

// semaphore is a fixed-capacity, non-blocking counting semaphore.
type semaphore struct {
	slots chan struct{}
}

func newSemaphore(capacity int) *semaphore {
	return &semaphore{slots: make(chan struct{}, capacity)}
}

// tryAcquire attempts to take a slot without blocking.
func (s *semaphore) tryAcquire() (Permit, bool) {
	select {
	case s.slots <- struct{}{}:
		once := &sync.Once{}
		return Permit{
			release: func() { <-s.slots },
			once:    once,
		}, true
	default:
		return Permit{}, false
	}
}

// DownstreamGate is the single global admission semaphore bounding total
// in-flight requests accepted from clients. A zero-value capacity (not
// configured) means unbounded: TryAcquire always succeeds.
type DownstreamGate struct {
	sem *semaphore
}

// NewDownstreamGate creates a gate with the given capacity. capacity <= 0
// means unbounded.
func NewDownstreamGate(capacity int) *DownstreamGate {
	if capacity <= 0 {
		return &DownstreamGate{}
	}
	return &DownstreamGate{sem: newSemaphore(capacity)}
}

// TryAcquire attempts to admit one more in-flight request.
func (g *DownstreamGate) TryAcquire() (Permit, bool) {
	if g.sem == nil {
		return Permit{}, true
	}
	return g.sem.tryAcquire()
}

// UpstreamGates maps (route id, upstream key digest) to a dedicated
// semaphore, created on first use. Entries are never removed: the key space
// is bounded by the Cartesian product of routes and configured upstream
// keys, which is small and fixed at startup.
type UpstreamGates struct {
	mu   sync.Mutex
	caps map[string]int
	sems map[string]*semaphore
}

// NewUpstreamGates creates an empty gate map. caps maps "routeID\x00digest"
// to its capacity; a missing entry means unbounded for that route/key.
func NewUpstreamGates(caps map[string]int) *UpstreamGates {
	return &UpstreamGates{
		caps: caps,
		sems: make(map[string]*semaphore),
	}
}

func gateKey(routeID, digest string) string {
	return routeID + "\x00" + digest
}

// TryAcquire admits one more in-flight request for the given route and
// upstream key digest, creating the backing semaphore on first use.
func (g *UpstreamGates) TryAcquire(routeID, digest string) (Permit, bool) {
	key := gateKey(routeID, digest)

	g.mu.Lock()
	capacity, bounded := g.caps[key]
	sem, exists := g.sems[key]
	if !exists && bounded {
		sem = newSemaphore(capacity)
		g.sems[key] = sem
	}
	g.mu.Unlock()

	if !bounded {
		return Permit{}, true
	}
	return sem.tryAcquire()
}
