// Package zone drives the physical lights of one zone toward a brightness target.
package zone

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/echo"
	"github.com/dokzlo13/combinedd/internal/light"
)

// Journal receives an entry for every command the controller attempts.
type Journal interface {
	Sent(session, lightID string, level uint8)
	Failed(session, lightID string, err error)
}

// Result counts the outcome of one Apply call.
type Result struct {
	Sent   int
	Failed int
}

// Controller issues on/off commands for zone lights, recording expectations first.
type Controller struct {
	commander light.Commander
	guard     *echo.Guard
	journal   Journal
}

// NewController creates a zone controller. journal may be nil.
func NewController(commander light.Commander, guard *echo.Guard, journal Journal) *Controller {
	return &Controller{
		commander: commander,
		guard:     guard,
		journal:   journal,
	}
}

// Apply sets every light in lights to pct (0-100). Zero turns them off.
// A failing light is logged and skipped; the rest of the zone still gets its command.
func (c *Controller) Apply(ctx context.Context, session string, lights []string, pct float64) Result {
	var res Result

	level := uint8(0)
	if pct > 0 {
		level = light.PercentToLevel(pct)
	}

	for _, id := range lights {
		// The expectation must exist before the command can echo back.
		c.guard.Expect(id, level)

		var err error
		if pct > 0 {
			err = c.commander.TurnOn(ctx, id, level)
		} else {
			err = c.commander.TurnOff(ctx, id)
		}

		if err != nil {
			c.guard.Forget(id)
			res.Failed++
			log.Error().Err(err).Str("light", id).Float64("pct", pct).Msg("Failed to control light")
			if c.journal != nil {
				c.journal.Failed(session, id, err)
			}
			continue
		}

		res.Sent++
		if c.journal != nil {
			c.journal.Sent(session, id, level)
		}
	}

	return res
}
