package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/shapesync/internal/api/apierr"
	"github.com/mcoot/shapesync/internal/api/response"
	"github.com/mcoot/shapesync/internal/factory"
	"github.com/mcoot/shapesync/internal/model"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
	ctx     context.Context
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, app.Start(ctx))

	return &testServer{
		handler: app.Router(),
		app:     app,
		ctx:     ctx,
	}
}

func (ts *testServer) request(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) register(t *testing.T, name string, conn model.ConnID) model.StableID {
	t.Helper()
	id, err := ts.app.Registry.Register(ts.ctx, model.NoStableID, name, conn)
	require.NoError(t, err)
	return id
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rr.Code)

	health := decode[response.Health](t, rr)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.Connections)
}

func TestListPlayersEmpty(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players")
	assert.Equal(t, http.StatusOK, rr.Code)

	list := decode[response.PlayerList](t, rr)
	assert.Empty(t, list.Players)
	assert.Equal(t, 0, list.Online)
}

func TestListPlayers(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "Ann", 1)
	ts.register(t, "Bob", 2)
	require.NoError(t, ts.app.Registry.Unbind(ts.ctx, 1))

	rr := ts.request(http.MethodGet, "/api/v1/players")
	require.Equal(t, http.StatusOK, rr.Code)

	list := decode[response.PlayerList](t, rr)
	require.Len(t, list.Players, 2)
	assert.Equal(t, "Ann", list.Players[0].Name)
	assert.False(t, list.Players[0].Online)
	assert.Equal(t, "Bob", list.Players[1].Name)
	assert.True(t, list.Players[1].Online)
	assert.Equal(t, 1, list.Online)
}

func TestGetPlayer(t *testing.T) {
	ts := newTestServer(t)
	id := ts.register(t, "Ann", 1)
	require.NoError(t, ts.app.Registry.ApplyUpdate(ts.ctx, 1, id, model.Vec2{X: 3, Y: 4}, model.ShapeBox))

	rr := ts.request(http.MethodGet, "/api/v1/players/1")
	require.Equal(t, http.StatusOK, rr.Code)

	player := decode[response.Player](t, rr)
	assert.Equal(t, model.StableID(1), player.ID)
	assert.Equal(t, model.Vec2{X: 3, Y: 4}, player.Position)
	assert.Equal(t, model.ShapeBox, player.Shape)
	assert.Contains(t, rr.Body.String(), `"shape":"box"`)
	assert.True(t, ts.app.MockClock.Now().Equal(player.LastSeen))
}

func TestGetPlayerNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/42")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodePlayerNotFound, decode[apierr.ErrorResponse](t, rr).Error.Code)
}

func TestGetPlayerBadID(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/players/abc", "/api/v1/players/0", "/api/v1/players/99999999999"} {
		rr := ts.request(http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		assert.Equal(t, apierr.CodeInvalidRequest, decode[apierr.ErrorResponse](t, rr).Error.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	resp := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, apierr.CodeMethodNotAllowed, resp.Error.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/nothing")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	resp := decode[apierr.ErrorResponse](t, rr)
	assert.Equal(t, apierr.CodeNotFound, resp.Error.Code)
}
