package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/bestway-spa/internal/coordinator"
	"github.com/muurk/bestway-spa/internal/spa"
	"github.com/muurk/bestway-spa/internal/spaclient"
)

// fakeCloud is an in-memory StateClient
type fakeCloud struct {
	mu       sync.Mutex
	snap     spaclient.Snapshot
	fetchErr error
	setErr   error
	sets     []string
	fetches  int
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{snap: spaclient.NewSnapshot(map[string]any{
		spa.KeyWaterTemperature:  json.Number("31"),
		spa.KeyTargetTemperature: json.Number("38"),
		spa.KeyHeaterState:       json.Number("4"),
		spa.KeyPowerState:        json.Number("1"),
	})}
}

func (f *fakeCloud) FetchState(ctx context.Context) (spaclient.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return spaclient.Snapshot{}, f.fetchErr
	}
	return f.snap, nil
}

func (f *fakeCloud) SetState(ctx context.Context, key string, value int) (*spaclient.CommandResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return nil, f.setErr
	}
	f.sets = append(f.sets, fmt.Sprintf("%s=%d", key, value))
	return &spaclient.CommandResponse{}, nil
}

func (f *fakeCloud) Close() error { return nil }

func (f *fakeCloud) setCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sets...)
}

func (f *fakeCloud) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func newTestBridge(t *testing.T) (*Server, *coordinator.Coordinator, *fakeCloud, *httptest.Server) {
	t.Helper()

	cloud := newFakeCloud()
	coord := coordinator.New(cloud)
	coord.SettleDelay = time.Hour
	t.Cleanup(func() { coord.Close() })

	s := New(&Config{Host: "127.0.0.1", Name: "Test Spa", DeviceID: "device-1"}, coord)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return s, coord, cloud, ts
}

func decodeState(t *testing.T, resp *http.Response) StateResponse {
	t.Helper()
	defer resp.Body.Close()
	var state StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func TestState_BeforeFirstRefresh(t *testing.T) {
	_, _, _, ts := newTestBridge(t)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	state := decodeState(t, resp)
	assert.False(t, state.Available)
	assert.Nil(t, state.LastUpdate)
	assert.True(t, state.Snapshot.IsZero() || state.Snapshot.Len() == 0)
}

func TestState_AfterRefresh(t *testing.T) {
	_, _, _, ts := newTestBridge(t)

	resp := postJSON(t, ts.URL+"/api/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	state := decodeState(t, resp)

	assert.True(t, state.Available)
	require.NotNil(t, state.LastUpdate)
	require.NotNil(t, state.Status.WaterTemperature)
	assert.Equal(t, 31, *state.Status.WaterTemperature)
	assert.Equal(t, spa.HeaterIdle, state.Status.Heater)

	v, ok := state.Snapshot.Int(spa.KeyTargetTemperature)
	assert.True(t, ok)
	assert.Equal(t, 38, v)
}

func TestRefresh_CloudFailure(t *testing.T) {
	_, _, cloud, ts := newTestBridge(t)
	cloud.fetchErr = spaclient.NewConnectionError("fetch_state", "unexpected status", 503, "")

	resp := postJSON(t, ts.URL+"/api/refresh", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Spa cloud error (HTTP 503)", body.Error)
	assert.NotEmpty(t, body.Hint)
}

func TestCommand_Success(t *testing.T) {
	_, _, cloud, ts := newTestBridge(t)

	resp := postJSON(t, ts.URL+"/api/command", `{"key":"heater_state","value":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decodeState(t, resp)

	assert.Equal(t, []string{"heater_state=2"}, cloud.setCalls())
	assert.Equal(t, spa.HeaterHeating, state.Status.Heater)
}

func TestCommand_BadRequests(t *testing.T) {
	_, _, cloud, ts := newTestBridge(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"key":`, "invalid request body"},
		{"missing key", `{"value":1}`, "key is required"},
		{"missing value", `{"key":"power_state"}`, "value is required"},
		{"temperature out of range", `{"key":"temperature_setting","value":55}`, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/command", tt.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body.Error, tt.want)
		})
	}

	assert.Empty(t, cloud.setCalls())
}

func TestCommand_CloudFailure(t *testing.T) {
	_, _, cloud, ts := newTestBridge(t)
	cloud.setErr = spaclient.NewAuthError("set_state", "token rejected after reauthentication")

	resp := postJSON(t, ts.URL+"/api/command", `{"key":"filter_state","value":1}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Authentication failed - check credentials", body.Error)
}

func TestCommand_ZeroValueAllowed(t *testing.T) {
	_, _, cloud, ts := newTestBridge(t)

	resp := postJSON(t, ts.URL+"/api/command", `{"key":"power_state","value":0}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"power_state=0"}, cloud.setCalls())
}

func TestHealthz(t *testing.T) {
	_, _, _, ts := newTestBridge(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "version")
}

func TestMethodNotAllowed(t *testing.T) {
	_, _, _, ts := newTestBridge(t)

	resp, err := http.Get(ts.URL + "/api/command")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntilResult skips state messages until a command result arrives
func readUntilResult(t *testing.T, conn *websocket.Conn) (Message, []Message) {
	t.Helper()
	var states []Message
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg.Type == MessageResult {
			return msg, states
		}
		states = append(states, msg)
	}
	t.Fatal("no result message received")
	return Message{}, nil
}

func TestWebSocket_InitialStateAndUpdates(t *testing.T) {
	s, coord, _, ts := newTestBridge(t)
	require.NoError(t, coord.Refresh(context.Background()))

	conn := dialWS(t, ts)

	msg := readMessage(t, conn)
	assert.Equal(t, MessageState, msg.Type)
	require.NotNil(t, msg.State)
	assert.True(t, msg.State.Available)

	assert.Eventually(t, func() bool { return s.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	coord.ApplyOptimisticUpdate(spa.KeyWaveState, 1)

	msg = readMessage(t, conn)
	assert.Equal(t, MessageState, msg.Type)
	require.NotNil(t, msg.State)
	assert.True(t, msg.State.Optimistic)
	assert.True(t, msg.State.Status.Wave)
}

func TestWebSocket_Command(t *testing.T) {
	_, _, cloud, ts := newTestBridge(t)
	conn := dialWS(t, ts)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "cmd-1", "key": "temperature_setting", "value": 37}))

	result, _ := readUntilResult(t, conn)
	assert.Equal(t, "cmd-1", result.ID)
	assert.True(t, result.OK)
	assert.Empty(t, result.Error)
	assert.Equal(t, []string{"temperature_setting=37"}, cloud.setCalls())
}

func TestWebSocket_InvalidMessages(t *testing.T) {
	_, _, cloud, ts := newTestBridge(t)
	conn := dialWS(t, ts)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	result, _ := readUntilResult(t, conn)
	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "invalid message")

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "cmd-2", "key": "power_state"}))
	result, _ = readUntilResult(t, conn)
	assert.Equal(t, "cmd-2", result.ID)
	assert.Equal(t, "value is required", result.Error)

	assert.Empty(t, cloud.setCalls())
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	cloud := newFakeCloud()
	coord := coordinator.New(cloud)
	coord.Interval = 20 * time.Millisecond
	defer coord.Close()

	s := New(&Config{Host: "127.0.0.1"}, coord)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	base := "http://" + listener.Addr().String()
	assert.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/state")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var state StateResponse
		return json.NewDecoder(resp.Body).Decode(&state) == nil && state.Available
	}, 2*time.Second, 20*time.Millisecond, "poll loop should populate state")

	url := "ws://" + listener.Addr().String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	assert.Equal(t, 0, s.ActiveConnections())
	assert.GreaterOrEqual(t, cloud.fetchCount(), 1)

	_, err = http.Get(base + "/healthz")
	assert.Error(t, err, "listener should be closed")
}
