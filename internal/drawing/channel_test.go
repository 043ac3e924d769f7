package drawing

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/sketchbox/internal/protocol"
	"github.com/Seednode/sketchbox/internal/raster"
)

type recorder struct {
	envs []protocol.Envelope
	err  error
}

func (r *recorder) Emit(env protocol.Envelope) error {
	if r.err != nil {
		return r.err
	}
	r.envs = append(r.envs, env)
	return nil
}

func (r *recorder) types() []string {
	out := make([]string, 0, len(r.envs))
	for _, e := range r.envs {
		out = append(out, e.Type)
	}
	return out
}

func newPair(w, h int) (*Channel, *recorder, *Channel) {
	rec := &recorder{}
	local := New(raster.NewSurface(w, h, raster.White), rec, zerolog.Nop())
	remote := New(raster.NewSurface(w, h, raster.White), nil, zerolog.Nop())
	return local, rec, remote
}

// replay pushes recorded envelopes through the JSON wire form and applies
// them to dst.
func replay(t *testing.T, envs []protocol.Envelope, dst *Channel) {
	t.Helper()

	for _, env := range envs {
		raw, err := env.Marshal()
		require.NoError(t, err)

		parsed, err := protocol.Parse(raw)
		require.NoError(t, err)

		ev, err := protocol.DecodeDrawEvent(parsed)
		require.NoError(t, err)

		dst.Apply(ev)
	}
}

func TestConvergence(t *testing.T) {
	local, rec, remote := newPair(120, 90)

	local.SetColor(protocol.Color{R: 200, G: 30, B: 30})
	local.SetSize(7)
	require.NoError(t, local.StartPath(10.5, 12))
	for i := 1; i <= 20; i++ {
		require.NoError(t, local.MoveTo(10.5+float64(i)*4.3, 12+float64(i*i)/6))
	}
	require.NoError(t, local.EndPath())

	local.SetTool(protocol.ToolFill)
	local.SetColor(protocol.Color{G: 180, B: 255})
	require.NoError(t, local.StartPath(100, 5))

	local.SetTool(protocol.ToolBrush)
	local.SetColor(protocol.Color{})
	local.SetSize(3)
	require.NoError(t, local.StartPath(60, 60))
	require.NoError(t, local.EndPath())

	local.SetTool(protocol.ToolEraser)
	local.SetSize(11)
	require.NoError(t, local.StartPath(5, 80))
	require.NoError(t, local.MoveTo(115, 20))
	require.NoError(t, local.EndPath())

	require.NoError(t, local.Undo())
	require.NoError(t, local.Clear())
	require.NoError(t, local.Undo())

	replay(t, rec.envs, remote)

	if d := cmp.Diff(local.Surface().Snapshot(), remote.Surface().Snapshot()); d != "" {
		t.Fatalf("surfaces diverged (-local +remote):\n%s", d)
	}
	assert.Equal(t, local.History().Len(), remote.History().Len())
}

func TestConvergenceOverBinaryFrames(t *testing.T) {
	local, rec, remote := newPair(64, 64)

	local.SetColor(protocol.Color{R: 10, G: 120, B: 90})
	require.NoError(t, local.StartPath(3, 3))
	require.NoError(t, local.MoveTo(60, 33.3))
	require.NoError(t, local.MoveTo(7, 61))
	require.NoError(t, local.EndPath())
	local.SetTool(protocol.ToolFill)
	require.NoError(t, local.StartPath(50, 10))

	for _, env := range rec.envs {
		f, err := protocol.FrameOf(env)
		require.NoError(t, err)

		b, err := protocol.AppendFrame(nil, f)
		require.NoError(t, err)

		back, err := protocol.DecodeFrame(b)
		require.NoError(t, err)

		remote.Apply(back.Event)
	}

	assert.Equal(t, local.Surface().Checksum(), remote.Surface().Checksum())
}

func TestFillWholeSurfaceScenario(t *testing.T) {
	local, rec, _ := newPair(100, 100)
	local.SetTool(protocol.ToolFill)
	local.SetColor(protocol.Color{})

	require.NoError(t, local.StartPath(0, 0))

	for y := range 100 {
		for x := range 100 {
			c, _ := local.Surface().Pixel(x, y)
			require.Equal(t, protocol.Color{}.NRGBA(), c)
		}
	}
	assert.Equal(t, 1, local.History().Len())
	assert.Equal(t, []string{protocol.TypeFill}, rec.types())
}

func TestRedundantFillLeavesNoTrace(t *testing.T) {
	local, rec, _ := newPair(30, 30)
	local.SetColor(protocol.Color{R: 255})

	require.NoError(t, local.Fill(4, 4))
	before := local.Surface().Snapshot()

	require.NoError(t, local.Fill(4, 4))
	require.NoError(t, local.Fill(-5, 4))

	assert.Equal(t, before, local.Surface().Snapshot())
	assert.Equal(t, 1, local.History().Len())
	assert.Len(t, rec.envs, 1)
}

func TestUndoOnEmptyHistory(t *testing.T) {
	local, rec, _ := newPair(10, 10)
	before := local.Surface().Snapshot()

	require.NoError(t, local.Undo())

	assert.Equal(t, before, local.Surface().Snapshot())
	assert.Equal(t, []string{protocol.TypeUndo}, rec.types())
}

func TestMoveWithoutPathEmitsNothing(t *testing.T) {
	local, rec, _ := newPair(10, 10)

	require.NoError(t, local.MoveTo(3, 3))
	require.NoError(t, local.EndPath())

	assert.Empty(t, rec.envs)
}

func TestNonFiniteStartLeavesNoTrace(t *testing.T) {
	local, rec, _ := newPair(10, 10)

	require.NoError(t, local.StartPath(math.NaN(), 3))
	require.NoError(t, local.StartPath(3, math.Inf(1)))
	require.NoError(t, local.MoveTo(5, 5))
	require.NoError(t, local.EndPath())

	assert.False(t, local.Drawing())
	assert.Zero(t, local.History().Len())
	assert.Empty(t, rec.envs)
}

func TestClickEmitsStartAndEnd(t *testing.T) {
	local, rec, remote := newPair(40, 40)
	local.SetSize(9)

	require.NoError(t, local.StartPath(20, 20))
	require.NoError(t, local.EndPath())

	assert.Equal(t, []string{protocol.TypeStartPath, protocol.TypeEndPath}, rec.types())

	replay(t, rec.envs, remote)
	assert.Equal(t, local.Surface().Snapshot(), remote.Surface().Snapshot())

	c, _ := remote.Surface().Pixel(20, 20)
	assert.Equal(t, uint8(0), c.R)
}

func TestRemoteDrawWithoutStartIsIgnored(t *testing.T) {
	_, _, remote := newPair(10, 10)
	before := remote.Surface().Snapshot()

	remote.Apply(protocol.DrawPoint{X: 1, Y: 1})
	remote.Apply(protocol.EndPath{})

	assert.Equal(t, before, remote.Surface().Snapshot())
	assert.Zero(t, remote.History().Len())
}

func TestRemoteSnapshotsMatchLocal(t *testing.T) {
	_, _, remote := newPair(10, 10)

	remote.Apply(protocol.StartPath{X: 1, Y: 1, Size: 2, Tool: protocol.ToolBrush})
	remote.Apply(protocol.EndPath{})
	remote.Apply(protocol.Fill{X: 8, Y: 8, Color: protocol.Color{B: 255}})
	remote.Apply(protocol.Clear{})

	assert.Equal(t, 3, remote.History().Len())
}

func TestSequenceNumbers(t *testing.T) {
	local, rec, _ := newPair(10, 10)

	require.NoError(t, local.StartPath(1, 1))
	require.NoError(t, local.MoveTo(2, 2))
	require.NoError(t, local.EndPath())
	local.ResetSequence()
	require.NoError(t, local.Clear())

	var got []uint64
	for _, e := range rec.envs {
		got = append(got, e.Seq)
	}
	assert.Equal(t, []uint64{1, 2, 3, 1}, got)
}

func TestEmitErrorIsReturned(t *testing.T) {
	boom := errors.New("socket closed")
	rec := &recorder{err: boom}
	c := New(raster.NewSurface(5, 5, raster.White), rec, zerolog.Nop())

	assert.ErrorIs(t, c.Clear(), boom)
}

func TestToolStateValidation(t *testing.T) {
	c := New(raster.NewSurface(5, 5, raster.White), nil, zerolog.Nop())

	c.SetTool("laser")
	c.SetSize(0)

	assert.Equal(t, DefaultState, c.State())
}
