package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/combinedd/internal/combined"
	"github.com/dokzlo13/combinedd/internal/ledger"
)

type fakeController struct {
	state combined.State
	ons   []*uint8
	offs  int
	err   error
}

func (c *fakeController) TurnOn(_ context.Context, b *uint8) error {
	if c.err != nil {
		return c.err
	}
	c.ons = append(c.ons, b)
	c.state.On = true
	if b != nil {
		c.state.Target = *b
	}
	return nil
}

func (c *fakeController) TurnOff(context.Context) error {
	if c.err != nil {
		return c.err
	}
	c.offs++
	c.state.On = false
	return nil
}

func (c *fakeController) State() combined.State { return c.state }

type fakeLedger struct {
	gotType  ledger.EventType
	gotLimit int
	entries  []*ledger.Entry
}

func (l *fakeLedger) GetRecent(t ledger.EventType, limit int) ([]*ledger.Entry, error) {
	l.gotType, l.gotLimit = t, limit
	return l.entries, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	ready := false
	h := NewRouter(Deps{Controller: &fakeController{}, Ready: func() bool { return ready }})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/ready", "").Code)

	ready = true
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/ready", "").Code)
}

func TestGetLight(t *testing.T) {
	b := uint8(94)
	h := NewRouter(Deps{Controller: &fakeController{state: combined.State{Name: "living_room", On: true, Brightness: &b, Target: 94}}})

	rec := do(t, h, http.MethodGet, "/api/light", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"living_room","on":true,"commanded":false,"brightness":94,"target":94}`, rec.Body.String())
}

func TestTurnOn(t *testing.T) {
	ctrl := &fakeController{}
	h := NewRouter(Deps{Controller: ctrl})

	rec := do(t, h, http.MethodPost, "/api/light/on", `{"brightness":200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ctrl.ons, 1)
	assert.Equal(t, uint8(200), *ctrl.ons[0])

	rec = do(t, h, http.MethodPost, "/api/light/on", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ctrl.ons, 2)
	assert.Nil(t, ctrl.ons[1])

	var s combined.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.True(t, s.On)
}

func TestTurnOn_BadRequests(t *testing.T) {
	ctrl := &fakeController{}
	h := NewRouter(Deps{Controller: ctrl})

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/light/on", `{"brightness":300}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/light/on", `{"brightness":`).Code)
	assert.Empty(t, ctrl.ons)
}

func TestTurnOff(t *testing.T) {
	ctrl := &fakeController{}
	h := NewRouter(Deps{Controller: ctrl})

	rec := do(t, h, http.MethodPost, "/api/light/off", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ctrl.offs)
}

func TestControllerClosed(t *testing.T) {
	h := NewRouter(Deps{Controller: &fakeController{err: combined.ErrClosed}})

	rec := do(t, h, http.MethodPost, "/api/light/off", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "closed")
}

func TestGetLedger(t *testing.T) {
	l := &fakeLedger{entries: []*ledger.Entry{{ID: 1, EventType: ledger.EventCommandSent, Source: "a"}}}
	h := NewRouter(Deps{Controller: &fakeController{}, Ledger: l})

	rec := do(t, h, http.MethodGet, "/api/ledger?type=command_sent&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ledger.EventCommandSent, l.gotType)
	assert.Equal(t, 5, l.gotLimit)

	var entries []ledger.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Source)

	do(t, h, http.MethodGet, "/api/ledger?limit=5000", "")
	assert.Equal(t, maxLedgerLimit, l.gotLimit)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/ledger?type=bogus", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/ledger?limit=-1", "").Code)
}

func TestGetLedger_Disabled(t *testing.T) {
	h := NewRouter(Deps{Controller: &fakeController{}})
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/ledger", "").Code)
}
