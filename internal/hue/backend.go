// Package hue connects the combined light to a Philips Hue bridge.
//
// Commands go through a shared rate limiter; the bridge drops requests when
// flooded, and one dial change can touch every light in every zone.
package hue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/combinedd/internal/light"
)

// DefaultRateLimitRPS is the command rate used when none is configured.
const DefaultRateLimitRPS = 10.0

// Backend is a bridge that can command lights and report their current state.
type Backend interface {
	light.Commander
	Connect(ctx context.Context) error
	Snapshot(ctx context.Context) (map[string]light.State, error)
	Close()
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		rps = DefaultRateLimitRPS
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Prime loads a snapshot from the backend into cache.
// Only the given lights are checked for presence; missing ones are logged.
func Prime(ctx context.Context, b Backend, cache *light.Cache, lights []string) error {
	states, err := b.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load light states: %w", err)
	}

	for _, id := range lights {
		if _, ok := states[id]; !ok {
			log.Warn().Str("light", id).Msg("Configured light not found on bridge")
		}
	}

	cache.Prime(states)
	return nil
}
