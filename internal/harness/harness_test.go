package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/taoyao-code/hmi-link/internal/protocol/can"
	"github.com/taoyao-code/hmi-link/internal/queue"
)

func TestTracker_ISOAndCreep(t *testing.T) {
	tr := NewTracker(queue.New(), 0, zaptest.NewLogger(t))
	var events []int
	tr.OnButton(func(index int, _ bool) { events = append(events, index) })

	tr.Handle(can.EncodeButton(int(can.ButtonISO), true))
	tr.Handle(can.EncodeButton(int(can.ButtonISO), true))
	tr.Handle(can.EncodeButton(int(can.ButtonCreep), true))
	tr.Handle(can.EncodeButton(int(can.ButtonCreep), true))
	tr.Handle(can.EncodeRPM(100))

	s := tr.States()
	assert.True(t, s.ISOActive)
	assert.True(t, s.CreepActive)
	assert.True(t, s.Buttons[can.ButtonCreep])
	assert.Equal(t, uint64(5), s.Frames)
	// ISO 每次都通知，Creep 只在变化时通知
	assert.Equal(t, []int{0, 0, 2}, events)
}

func TestTracker_RunDrainsQueue(t *testing.T) {
	q := queue.New()
	tr := NewTracker(q, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = tr.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	q.Enqueue(can.EncodeButton(int(can.ButtonCreep), true))
	require.Eventually(t, func() bool { return tr.States().CreepActive }, time.Second, time.Millisecond)
}

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: warmup
steps:
  - kind: rpm
    value: 800
    step: 100
    repeat: 3
  - kind: gauge
    index: 0
    value: 55
  - kind: engine_hours
    value: 10.5
`))
	require.NoError(t, err)
	assert.Equal(t, "warmup", sc.Name)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, 3, sc.Steps[0].Repeat)

	_, err = ParseScenario([]byte("steps: []"))
	assert.Error(t, err)

	_, err = ParseScenario([]byte("steps:\n  - kind: warp_drive\n"))
	assert.Error(t, err)

	_, err = ParseScenario([]byte("steps:\n  - kind: telltale\n    index: 12\n"))
	assert.ErrorIs(t, err, can.ErrInvalidIndex)

	_, err = ParseScenario([]byte("steps:\n  - kind: button\n"))
	assert.Error(t, err)
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - kind: popup\n    value: 3\n"), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "popup", sc.Steps[0].Kind)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.toml")
	content := `name = "gauges"

[[steps]]
kind = "gauge"
index = 2
value = 10.0
step = 20.0
repeat = 4

[[steps]]
kind = "engine_hours"
value = 12.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "gauges", sc.Name)
	require.Len(t, sc.Steps, 2)
	assert.Equal(t, 2, sc.Steps[0].Index)
	assert.Equal(t, 4, sc.Steps[0].Repeat)
	assert.InDelta(t, 12.5, sc.Steps[1].Value, 1e-9)

	_, err = ParseScenarioTOML([]byte("[[steps]]\nkind = \"button\"\n"))
	assert.Error(t, err)
}

type fakePublisher struct {
	mu       sync.Mutex
	readings []can.Reading
	failKind can.Kind
}

func (f *fakePublisher) Publish(_ context.Context, r can.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Kind == f.failKind {
		return errors.New("rejected")
	}
	f.readings = append(f.readings, r)
	return nil
}

func TestRunner_RunOnce(t *testing.T) {
	sc, err := ParseScenario([]byte(`
steps:
  - kind: rpm
    value: 800
    step: 100
    repeat: 3
  - kind: engine_hours
    value: 1
  - kind: telltale
    index: 2
    value: 1
`))
	require.NoError(t, err)

	pub := &fakePublisher{failKind: can.KindEngineHours}
	pacer := NewPacer(1000, 10)
	res, err := NewRunner(pub, pacer, zaptest.NewLogger(t)).Run(context.Background(), sc, false)
	require.NoError(t, err)

	assert.Equal(t, RunResult{Published: 4, Failed: 1, Passes: 1}, res)
	require.Len(t, pub.readings, 4)
	assert.Equal(t, 800.0, pub.readings[0].Value)
	assert.Equal(t, 1000.0, pub.readings[2].Value)
	assert.Equal(t, can.KindTelltale, pub.readings[3].Kind)
	assert.Equal(t, int64(5), pacer.Stats().SentTotal)
}

func TestRunner_LoopStopsOnCancel(t *testing.T) {
	sc, err := ParseScenario([]byte("steps:\n  - kind: rpm\n    value: 1\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	pacer := NewPacer(200, 1)
	res, err := NewRunner(&fakePublisher{}, pacer, nil).Run(ctx, sc, true)
	assert.Error(t, err)
	assert.Greater(t, res.Passes, 0)

	st := pacer.Stats()
	assert.Equal(t, int64(1), st.CancelledTotal)
	assert.Equal(t, int64(res.Published), st.SentTotal)
	assert.Equal(t, 200, st.RatePerSecond)
}
