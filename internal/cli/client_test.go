package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/shapesync/internal/api/apierr"
	"github.com/mcoot/shapesync/internal/api/response"
	"github.com/mcoot/shapesync/internal/model"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/health":
			response.JSON(w, http.StatusOK, response.Health{Status: "ok", Connections: 3})
		case "/api/v1/players/9":
			apierr.WriteError(w, model.ErrPlayerNotFound)
		default:
			http.Error(w, "nope", http.StatusTeapot)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	var health response.Health
	require.NoError(t, c.Get(ctx, "/api/v1/health", &health))
	assert.Equal(t, 3, health.Connections)

	err := c.Get(ctx, "/api/v1/players/9", &response.Player{})
	require.Error(t, err)
	assert.Equal(t, "Player not found (PLAYER_NOT_FOUND)", err.Error())

	err = c.Get(ctx, "/other", nil)
	require.Error(t, err)
	assert.Equal(t, "HTTP 418: nope", err.Error())
}
