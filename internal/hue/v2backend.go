package hue

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	v2 "github.com/dokzlo13/combinedd/internal/hue/v2"
	"github.com/dokzlo13/combinedd/internal/light"
)

// V2Backend drives lights through the CLIP V2 API. Lights are addressed by UUID.
type V2Backend struct {
	client  *v2.Client
	limiter *rate.Limiter
}

// NewHTTPClient returns a client for the bridge's self-signed HTTPS endpoint.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// NewV2Backend creates a V2 backend for the bridge at address.
func NewV2Backend(address, token string, timeout time.Duration, rateLimitRPS float64) *V2Backend {
	return &V2Backend{
		client:  v2.NewClient(address, token, NewHTTPClient(timeout)),
		limiter: newLimiter(rateLimitRPS),
	}
}

// NewV2BackendWithClient wraps an existing client.
func NewV2BackendWithClient(client *v2.Client, rateLimitRPS float64) *V2Backend {
	return &V2Backend{client: client, limiter: newLimiter(rateLimitRPS)}
}

// Client returns the underlying V2 client (shared with the event stream).
func (b *V2Backend) Client() *v2.Client {
	return b.client
}

// Connect checks that the bridge answers.
func (b *V2Backend) Connect(ctx context.Context) error {
	return b.client.Connect(ctx)
}

// Close releases idle connections.
func (b *V2Backend) Close() {
	b.client.Close()
}

// TurnOn implements light.Commander.
func (b *V2Backend) TurnOn(ctx context.Context, id string, level uint8) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return b.client.UpdateLight(ctx, id, v2.LightUpdate{
		On:      &v2.On{On: true},
		Dimming: &v2.Dimming{Brightness: light.LevelToPercent(level)},
	})
}

// TurnOff implements light.Commander.
func (b *V2Backend) TurnOff(ctx context.Context, id string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return b.client.UpdateLight(ctx, id, v2.LightUpdate{On: &v2.On{On: false}})
}

// Snapshot returns the state of every light on the bridge, keyed by UUID.
func (b *V2Backend) Snapshot(ctx context.Context) (map[string]light.State, error) {
	lights, err := b.client.GetLights(ctx)
	if err != nil {
		return nil, err
	}

	states := make(map[string]light.State, len(lights))
	for _, l := range lights {
		var st light.State
		if l.On != nil {
			st.On = l.On.On
		}
		if l.Dimming != nil {
			st.Brightness = light.PercentToLevel(l.Dimming.Brightness)
			st.HasBrightness = true
		}
		states[l.ID] = st
	}
	return states, nil
}
