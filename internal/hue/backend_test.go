package hue

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v2 "github.com/dokzlo13/combinedd/internal/hue/v2"
	"github.com/dokzlo13/combinedd/internal/light"
)

func newTestV2Backend(t *testing.T, handler http.HandlerFunc) *V2Backend {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)
	client := v2.NewClient(strings.TrimPrefix(srv.URL, "https://"), "token", srv.Client())
	return NewV2BackendWithClient(client, 1000)
}

func TestV2Backend_Snapshot(t *testing.T) {
	b := newTestV2Backend(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[
			{"id":"a","on":{"on":true},"dimming":{"brightness":100}},
			{"id":"b","on":{"on":false},"dimming":{"brightness":20}},
			{"id":"plug","on":{"on":true}}
		]}`)
	})

	states, err := b.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, light.WithBrightness(255), states["a"])
	assert.Equal(t, light.State{On: false, Brightness: 51, HasBrightness: true}, states["b"])
	assert.Equal(t, light.State{On: true}, states["plug"])
}

func TestV2Backend_Prime(t *testing.T) {
	b := newTestV2Backend(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":[{"id":"a","on":{"on":true},"dimming":{"brightness":50}}]}`)
	})
	cache := light.NewCache()

	require.NoError(t, Prime(context.Background(), b, cache, []string{"a", "missing"}))

	assert.True(t, cache.Ready())
	st, ok := cache.State("a")
	require.True(t, ok)
	assert.Equal(t, uint8(128), st.Brightness)
}

func TestV2Backend_TurnOnOff(t *testing.T) {
	var bodies []string
	b := newTestV2Backend(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(data))
		io.WriteString(w, `{"data":[]}`)
	})

	require.NoError(t, b.TurnOn(context.Background(), "a", 255))
	require.NoError(t, b.TurnOff(context.Background(), "a"))

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"on":{"on":true},"dimming":{"brightness":100}}`, bodies[0])
	assert.JSONEq(t, `{"on":{"on":false}}`, bodies[1])
}

func TestV2Backend_NotFound(t *testing.T) {
	b := newTestV2Backend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := b.TurnOff(context.Background(), "gone")
	assert.ErrorIs(t, err, light.ErrNotFound)
}

func TestV1Bri(t *testing.T) {
	assert.Equal(t, uint8(1), toV1Bri(0))
	assert.Equal(t, uint8(128), toV1Bri(128))
	assert.Equal(t, uint8(254), toV1Bri(255))
	assert.Equal(t, uint8(255), fromV1Bri(254))
	assert.Equal(t, uint8(100), fromV1Bri(100))
}

func TestClassifyV1Error(t *testing.T) {
	assert.ErrorIs(t, classifyV1Error(errors.New(`ERROR 3 [/lights/9]: "resource, /lights/9, not available"`)), light.ErrNotFound)
	assert.ErrorIs(t, classifyV1Error(errors.New(`ERROR 7 [/lights/1/state/bri]: "invalid value, 300, for parameter, bri"`)), light.ErrInvalidValue)

	other := errors.New("connection refused")
	assert.Equal(t, other, classifyV1Error(other))
}

func TestV1Backend_RejectsNonNumericID(t *testing.T) {
	b := NewV1Backend("127.0.0.1:1", "token", 0)
	err := b.TurnOn(context.Background(), "uuid-like", 10)
	assert.ErrorIs(t, err, light.ErrNotFound)
}
