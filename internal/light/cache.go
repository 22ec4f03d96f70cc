package light

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Update is a partial state report from a backend. Nil fields were not reported.
type Update struct {
	ID         string
	On         *bool
	Brightness *uint8
}

// cachedLight holds merged light state with the time it was last touched.
type cachedLight struct {
	State     State
	UpdatedAt time.Time
}

// Cache mirrors physical light state from a snapshot and subsequent partial updates.
// It never talks to the network; backends feed it.
type Cache struct {
	mu     sync.RWMutex
	lights map[string]*cachedLight
	ready  bool
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{lights: make(map[string]*cachedLight)}
}

// State implements Reader. Lights that are off report no brightness.
func (c *Cache) State(id string) (State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.lights[id]
	if !ok {
		return State{}, false
	}
	st := cached.State
	if !st.On {
		st.HasBrightness = false
		st.Brightness = 0
	}
	return st, true
}

// Prime replaces the cache content with a full snapshot and marks it ready.
func (c *Cache) Prime(states map[string]State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.lights = make(map[string]*cachedLight, len(states))
	for id, st := range states {
		c.lights[id] = &cachedLight{State: st, UpdatedAt: now}
	}
	c.ready = true

	log.Info().Int("lights", len(states)).Msg("Light state cache primed")
}

// Ready reports whether a snapshot has been loaded.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Apply merges a partial update and returns the resulting state.
// changed is false when the update did not alter anything.
func (c *Cache) Apply(u Update) (st State, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.lights[u.ID]
	if !ok {
		cached = &cachedLight{}
		c.lights[u.ID] = cached
	}
	prev := cached.State

	if u.On != nil {
		cached.State.On = *u.On
	}
	if u.Brightness != nil {
		cached.State.Brightness = *u.Brightness
		cached.State.HasBrightness = true
	}
	cached.UpdatedAt = time.Now()

	st = cached.State
	if !st.On {
		st.HasBrightness = false
		st.Brightness = 0
	}
	return st, !ok || prev != cached.State
}

// Len returns the number of known lights.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lights)
}
