package spectator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/broadcast"
)

type fixedSource struct {
	snap model.Snapshot
}

func (f fixedSource) Snapshot() model.Snapshot {
	return f.snap
}

func setup(t *testing.T) (*httptest.Server, chan model.Snapshot) {
	t.Helper()
	source := make(chan model.Snapshot)
	bcst := broadcast.NewBroadcastServer("spectator-test", source)
	t.Cleanup(bcst.Close)
	srv := New(fixedSource{snap: model.Snapshot{RunID: "current", Frame: 7}}, bcst)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, source
}

func TestSnapshotEndpoint(t *testing.T) {
	ts, _ := setup(t)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/snapshot", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	var got model.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "current", got.RunID)
	assert.Equal(t, uint64(7), got.Frame)
}

func TestSnapshotEndpointRejectsPost(t *testing.T) {
	ts, _ := setup(t)
	resp, err := http.Post(ts.URL+"/snapshot", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebsocketStream(t *testing.T) {
	ts, source := setup(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer c.Close()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))

	var got model.Snapshot
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, "current", got.RunID, "current state is sent on connect")

	// the subscription is registered before the initial snapshot is written
	go func() { source <- model.Snapshot{RunID: "next", Frame: 8} }()
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, "next", got.RunID)
	assert.Equal(t, uint64(8), got.Frame)
}
