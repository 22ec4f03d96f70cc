package hue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/amimof/huego"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/combinedd/internal/light"
)

// V1Backend drives lights through the classic V1 API using huego.
// Lights are addressed by their numeric V1 id ("5").
type V1Backend struct {
	bridge  *huego.Bridge
	limiter *rate.Limiter
}

// NewV1Backend creates a V1 backend for the bridge at address.
func NewV1Backend(address, token string, rateLimitRPS float64) *V1Backend {
	return &V1Backend{
		bridge:  huego.New(address, token),
		limiter: newLimiter(rateLimitRPS),
	}
}

// Connect checks that the bridge answers.
func (b *V1Backend) Connect(ctx context.Context) error {
	if _, err := b.bridge.GetConfigContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to Hue bridge V1 API: %w", err)
	}
	return nil
}

// Close is a no-op; huego keeps no connections of its own.
func (b *V1Backend) Close() {}

// TurnOn implements light.Commander.
func (b *V1Backend) TurnOn(ctx context.Context, id string, level uint8) error {
	return b.set(ctx, id, huego.State{On: true, Bri: toV1Bri(level)})
}

// TurnOff implements light.Commander.
func (b *V1Backend) TurnOff(ctx context.Context, id string) error {
	return b.set(ctx, id, huego.State{On: false})
}

func (b *V1Backend) set(ctx context.Context, id string, state huego.State) error {
	n, err := strconv.Atoi(id)
	if err != nil {
		return fmt.Errorf("light %q: %w", id, light.ErrNotFound)
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := b.bridge.SetLightStateContext(ctx, n, state); err != nil {
		return fmt.Errorf("light %q: %w", id, classifyV1Error(err))
	}
	return nil
}

// Snapshot returns the state of every light on the bridge, keyed by V1 id.
func (b *V1Backend) Snapshot(ctx context.Context) (map[string]light.State, error) {
	lights, err := b.bridge.GetLightsContext(ctx)
	if err != nil {
		return nil, err
	}

	states := make(map[string]light.State, len(lights))
	for _, l := range lights {
		var st light.State
		if l.State != nil {
			st = light.State{On: l.State.On, Brightness: fromV1Bri(l.State.Bri), HasBrightness: true}
		}
		states[strconv.Itoa(l.ID)] = st
	}
	return states, nil
}

// toV1Bri maps 0-255 onto the V1 range 1-254.
func toV1Bri(level uint8) uint8 {
	if level < 1 {
		return 1
	}
	if level > 254 {
		return 254
	}
	return level
}

func fromV1Bri(bri uint8) uint8 {
	if bri >= 254 {
		return 255
	}
	return bri
}

// classifyV1Error maps V1 bridge error descriptions onto light errors.
// Type 3 is "resource not available" and type 7 "invalid value".
func classifyV1Error(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not available"):
		return fmt.Errorf("%w: %s", light.ErrNotFound, msg)
	case strings.Contains(msg, "invalid value"):
		return fmt.Errorf("%w: %s", light.ErrInvalidValue, msg)
	default:
		return err
	}
}
