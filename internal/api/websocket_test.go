package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/combinedd/internal/combined"
)

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/light/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStream_SendsCurrentThenUpdates(t *testing.T) {
	hub := NewHub()
	ctrl := &fakeController{state: combined.State{Name: "living_room", Target: 94}}
	srv := httptest.NewServer(NewRouter(Deps{Controller: ctrl, Hub: hub}))
	defer srv.Close()

	conn := dialStream(t, srv)

	first := readFrame(t, conn)
	assert.Equal(t, wsTypeState, first.Type)
	assert.Equal(t, uint8(94), first.Payload.Target)
	assert.False(t, first.Payload.On)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	b := uint8(200)
	hub.Publish(combined.State{Name: "living_room", On: true, Commanded: true, Brightness: &b, Target: 200})

	next := readFrame(t, conn)
	assert.True(t, next.Payload.On)
	require.NotNil(t, next.Payload.Brightness)
	assert.Equal(t, uint8(200), *next.Payload.Brightness)
}

func TestStream_ClientRemovedOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewRouter(Deps{Controller: &fakeController{}, Hub: hub}))
	defer srv.Close()

	conn := dialStream(t, srv)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RunClosesClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewRouter(Deps{Controller: &fakeController{}, Hub: hub}))
	defer srv.Close()

	conn := dialStream(t, srv)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.Zero(t, hub.ClientCount())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestStream_DisabledWithoutHub(t *testing.T) {
	h := NewRouter(Deps{Controller: &fakeController{}})
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/light/ws", "").Code)
}

func TestCORS_Preflight(t *testing.T) {
	h := NewRouter(Deps{Controller: &fakeController{}, CORSOrigins: []string{"http://dash.local"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/light/on", nil)
	req.Header.Set("Origin", "http://dash.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://dash.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/light", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
