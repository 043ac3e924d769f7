package lobby

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/sketchbox/internal/client"
	"github.com/Seednode/sketchbox/internal/protocol"
	"github.com/Seednode/sketchbox/internal/raster"
)

func newManager(t *testing.T, idle time.Duration) *Manager {
	t.Helper()

	p := &MockPrompter{}
	p.On("Random", mock.Anything).Return("apple", nil).Maybe()

	m := NewManager(context.Background(), p, Config{PrepareDelay: 0, Logger: zerolog.Nop()}, idle)
	t.Cleanup(m.Close)

	return m
}

func TestNewGameID(t *testing.T) {
	m := newManager(t, 0)

	id := m.NewGameID()
	assert.Len(t, id, 8)
	for _, r := range id {
		assert.Contains(t, idLetters, string(r))
	}
	assert.NotEqual(t, id, m.NewGameID())
}

func TestHubIsSharedPerGame(t *testing.T) {
	m := newManager(t, 0)

	a := m.Hub("game1")
	assert.Same(t, a, m.Hub("game1"))
	assert.NotSame(t, a, m.Hub("game2"))
	assert.Equal(t, 2, m.Len())

	got, ok := m.Lookup("game1")
	assert.True(t, ok)
	assert.Same(t, a, got)

	_, ok = m.Lookup("nope")
	assert.False(t, ok)
}

func TestReapStopsIdleHubs(t *testing.T) {
	m := newManager(t, 0)
	hub := m.Hub("idle")

	assert.Zero(t, m.Reap(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, m.Reap(time.Now().Add(time.Hour)))
	assert.Zero(t, m.Len())

	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reaped hub kept running")
	}
}

func TestExports(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	img.SetNRGBA(3, 4, raster.White)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	buf.Reset()
	require.NoError(t, WritePDF(&buf, img, "canvas"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func receiveType(t *testing.T, c *client.Conn, typ string) protocol.Envelope {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for {
		env, err := c.Receive(ctx)
		require.NoError(t, err)
		if env.Type == typ {
			return env
		}
	}
}

func TestServeOverWebsocket(t *testing.T) {
	m := newManager(t, 0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.Hub("wsgame").Serve(w, r)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/sketch/wsgame/ws"
	ctx := context.Background()

	drawer, err := client.Dial(ctx, url, client.Options{Binary: true, Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer drawer.Close()

	guesser, err := client.Dial(ctx, url, client.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer guesser.Close()

	avatar := protocol.Avatar{Color: "#123456"}

	require.NoError(t, drawer.Send(protocol.MustWrap(protocol.Join{Name: "Ann", Avatar: avatar})))
	receiveType(t, drawer, protocol.TypeWaitingForPlayers)

	require.NoError(t, guesser.Send(protocol.MustWrap(protocol.Join{Name: "Bo", Avatar: avatar})))

	var started protocol.RoundStarted
	require.NoError(t, receiveType(t, drawer, protocol.TypeRoundStarted).Into(&started))
	assert.Equal(t, protocol.RoleDrawer, started.Role)
	assert.Equal(t, "apple", started.Prompt)

	require.NoError(t, receiveType(t, guesser, protocol.TypeRoundStarted).Into(&started))
	assert.Equal(t, protocol.RoleGuesser, started.Role)

	stroke := protocol.MustWrap(protocol.StartPath{X: 4, Y: 4, Size: 2, Color: protocol.Color{R: 9}, Tool: protocol.ToolBrush})
	stroke.Seq = 1
	require.NoError(t, drawer.Send(stroke))

	got := receiveType(t, guesser, protocol.TypeStartPath)
	assert.Equal(t, uint64(1), got.Seq)
	assert.NotEmpty(t, got.From)

	players, err := m.Hub("wsgame").Players(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "Ann", players[0].Name)
}
