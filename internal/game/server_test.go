package game

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomEndpoint(t *testing.T) {
	ts, svc := newWSTestServer(t)

	resp, err := http.Post(ts.URL+"/api/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.RoomID, 10)

	// the fresh code resolves to a live room
	_, found, err := svc.GetOrLoad(context.Background(), body.RoomID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestCreateRoomMethodNotAllowed(t *testing.T) {
	ts, _ := newWSTestServer(t)

	resp, err := http.Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRandID(t *testing.T) {
	id := randID(10)
	require.Len(t, id, 10)
	for i := 0; i < len(id); i++ {
		c := id[i]
		ok := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		assert.True(t, ok, "unexpected character %q", c)
	}
	assert.NotEqual(t, id, randID(10))
}
