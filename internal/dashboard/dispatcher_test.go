package dashboard

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taoyao-code/hmi-link/internal/metrics"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
)

func dispatch(d *Dispatcher, f can.Frame) Changes {
	return d.Dispatch(f.ID, f.Payload())
}

func TestNewState_Defaults(t *testing.T) {
	s := NewState()
	for i, on := range s.Telltales {
		assert.True(t, on, "telltale %d", i)
	}
	for i, lvl := range s.Gauges {
		assert.Equal(t, 1, lvl, "gauge %d", i)
	}
	assert.Equal(t, "11/05/1998", s.LastResetDate)
	assert.Zero(t, s.RPM)
	assert.Zero(t, s.EngineHours)
}

func TestMapPercent_Boundaries(t *testing.T) {
	cases := map[int]int{
		12: 1, 13: 2, 25: 2, 26: 3, 37: 3, 38: 4, 50: 4, 51: 5,
		62: 5, 63: 6, 75: 6, 76: 7, 87: 7, 88: 8, 100: 8, -5: 1, 150: 8,
		0: 1, 255: 8,
	}
	for percent, want := range cases {
		assert.Equal(t, want, MapPercent(percent), "percent %d", percent)
	}
}

func TestDispatch_RPMIdempotent(t *testing.T) {
	d := NewDispatcher(zaptest.NewLogger(t), nil)

	// id=0xDE000400, payload[6..8]=0x05,0xDC
	payload := []byte{0, 0, 0, 0, 0, 0, 0x05, 0xDC}
	ch := d.Dispatch(0xDE000400, payload)
	assert.Equal(t, Changes(FieldRPM), ch)
	assert.Equal(t, 1500, d.State().RPM)

	assert.True(t, d.Dispatch(0xDE000400, payload).Empty())
}

func TestDispatch_Telltale(t *testing.T) {
	d := NewDispatcher(nil, nil)

	// 默认全亮，再次置亮不通知
	assert.True(t, dispatch(d, can.EncodeTelltale(int(can.TelltaleBeacon), true)).Empty())

	ch := dispatch(d, can.EncodeTelltale(int(can.TelltaleBeacon), false))
	assert.True(t, ch.Has(FieldTelltales))
	assert.False(t, d.State().Telltales[can.TelltaleBeacon])
	assert.True(t, d.State().Telltales[can.TelltaleStop])
}

func TestDispatch_InvalidIndexWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.NewLinkMetrics(nil)
	d := NewDispatcher(zap.New(core), m)
	before := d.State()

	f := can.NewFrame(can.IDTelltaleBase+10, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	assert.True(t, dispatch(d, f).Empty())
	f = can.NewFrame(can.IDGaugeBase+7, []byte{0, 0, 0, 0, 0, 0, 0, 90})
	assert.True(t, dispatch(d, f).Empty())

	assert.Equal(t, before, d.State())
	assert.Equal(t, 2, logs.FilterMessage("invalid category index").Len())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FramesDiscarded.WithLabelValues("invalid_index")))
}

func TestDispatch_UnknownIDSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDispatcher(zap.New(core), nil)
	before := d.State()

	assert.True(t, d.Dispatch(0x12345678, make([]byte, 8)).Empty())
	assert.True(t, d.Dispatch(can.IDPopup+0x10, make([]byte, 8)).Empty())

	assert.Equal(t, before, d.State())
	assert.Zero(t, logs.Len())
}

func TestDispatch_ShortPayload(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := NewDispatcher(zap.New(core), nil)
	before := d.State()

	assert.True(t, d.Dispatch(can.IDRPM, []byte{0x05, 0xDC}).Empty())
	assert.Equal(t, before, d.State())
	assert.Equal(t, 1, logs.FilterMessage("payload too short").Len())
}

func TestDispatch_Gauge(t *testing.T) {
	d := NewDispatcher(nil, nil)

	ch := dispatch(d, can.EncodeGauge(int(can.GaugeFuel), 60))
	assert.True(t, ch.Has(FieldGauges))
	assert.Equal(t, 5, d.State().Gauges[can.GaugeFuel])

	// 同一格数不通知
	assert.True(t, dispatch(d, can.EncodeGauge(int(can.GaugeFuel), 55)).Empty())

	// 超过 100 的原始字节直接映射为 8 格
	f := can.NewFrame(can.IDGaugeBase+uint32(can.GaugeHydraulic), []byte{0, 0, 0, 0, 0, 0, 0, 200})
	dispatch(d, f)
	assert.Equal(t, 8, d.State().Gauges[can.GaugeHydraulic])
}

func TestDispatch_EngineHoursAndTrip(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.SetLastTripHours(5.0)

	ch := dispatch(d, can.EncodeEngineHours(20.0))
	assert.True(t, ch.Has(FieldEngineHours))
	assert.True(t, ch.Has(FieldTripHours))
	assert.InDelta(t, 20.0, d.State().EngineHours, 1e-9)
	assert.InDelta(t, 15.0, d.State().TripHours, 1e-9)

	assert.True(t, dispatch(d, can.EncodeEngineHours(20.0)).Empty())

	// 不校验单调性
	dispatch(d, can.EncodeEngineHours(5.0))
	assert.InDelta(t, 5.0, d.State().EngineHours, 1e-9)
	assert.InDelta(t, 0.0, d.State().TripHours, 1e-9)

	d.SetLastTripHours(20.0)
	assert.Equal(t, 0.0, d.State().TripHours)
}

func TestDispatch_TripDerivation(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.SetEngineHours(20.0)
	d.SetLastTripHours(5.0)
	assert.InDelta(t, 15.0, d.State().TripHours, 1e-9)

	d = NewDispatcher(nil, nil)
	d.SetEngineHours(5.0)
	d.SetLastTripHours(20.0)
	assert.Equal(t, 0.0, d.State().TripHours)
}

func TestDispatch_Buttons(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := NewDispatcher(zap.New(core), nil)

	ch := dispatch(d, can.EncodeButton(int(can.ButtonISO), true))
	assert.Equal(t, Changes(FieldISOActive), ch)
	assert.True(t, d.State().ISOActive)

	ch = dispatch(d, can.EncodeButton(int(can.ButtonCreep), true))
	assert.Equal(t, Changes(FieldCreepActive), ch)
	assert.True(t, d.State().CreepActive)

	// DEF 与其他有效索引不改状态、不告警
	before := d.State()
	assert.True(t, dispatch(d, can.EncodeButton(int(can.ButtonDEF), true)).Empty())
	assert.True(t, dispatch(d, can.EncodeButton(7, true)).Empty())
	assert.Equal(t, before, d.State())
	assert.Zero(t, logs.Len())
}

func TestDispatch_FuelRateAccumulatesPerChange(t *testing.T) {
	d := NewDispatcher(nil, nil)

	ch := dispatch(d, can.EncodeFuelRate(120))
	assert.True(t, ch.Has(FieldFuelRate))
	assert.True(t, ch.Has(FieldFuelUsage))
	assert.InDelta(t, (120.0/20.0)*(60.0/3600.0), d.State().FuelUsage, 1e-9)

	// 相同速率不再累加
	assert.True(t, dispatch(d, can.EncodeFuelRate(120)).Empty())

	dispatch(d, can.EncodeFuelRate(240))
	dispatch(d, can.EncodeFuelRate(120))
	want := (120.0 + 240.0 + 120.0) / 20 * (60.0 / 3600.0)
	assert.InDelta(t, want, d.State().FuelUsage, 1e-9)
	assert.Equal(t, 120, d.State().FuelRate)
}

func TestDispatch_DefRateRecomputesUsage(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.SetEngineHours(12.5)

	ch := dispatch(d, can.EncodeDefRate(4))
	assert.True(t, ch.Has(FieldDefRate))
	assert.True(t, ch.Has(FieldDefUsage))
	assert.InDelta(t, 50.0, d.State().DefUsage, 1e-9)

	dispatch(d, can.EncodeDefRate(2))
	assert.InDelta(t, 25.0, d.State().DefUsage, 1e-9)
}

func TestDispatch_PopupTwoNotifications(t *testing.T) {
	d := NewDispatcher(nil, nil)

	ch := dispatch(d, can.EncodePopup(-3))
	assert.True(t, ch.Has(FieldPopup))
	assert.True(t, ch.Has(FieldPopupTriggered))
	assert.Len(t, ch.Fields(), 2)
	assert.Equal(t, -3, d.State().Popup)

	assert.True(t, dispatch(d, can.EncodePopup(-3)).Empty())
}

func TestDispatch_AvgEngineLoadUnclamped(t *testing.T) {
	d := NewDispatcher(nil, nil)
	f := can.NewFrame(can.IDAvgEngineLoad, []byte{0, 0, 0, 0, 0, 0, 0x01, 0x2C})
	assert.Equal(t, Changes(FieldAvgEngineLoad), dispatch(d, f))
	assert.Equal(t, 300, d.State().AvgEngineLoad)
}

func TestMutators(t *testing.T) {
	d := NewDispatcher(nil, nil)

	assert.Equal(t, Changes(FieldCreepActive), d.SetCreepActive(true))
	assert.True(t, d.SetCreepActive(true).Empty())

	assert.Equal(t, Changes(FieldLastResetDate), d.SetLastResetDate("01/02/2026"))
	assert.True(t, d.SetLastResetDate("01/02/2026").Empty())

	assert.Equal(t, Changes(FieldFuelUsage), d.SetFuelUsage(123456))
	assert.Equal(t, MaxFuelUsage, d.State().FuelUsage)
	d.SetFuelUsage(-4)
	assert.Equal(t, 0.0, d.State().FuelUsage)

	d.SetEngineHours(42.5)
	ch := d.ResetTrip("03/04/2026")
	require.True(t, ch.Has(FieldLastTripHours))
	assert.True(t, ch.Has(FieldLastResetDate))
	assert.Equal(t, 42.5, d.State().LastTripHours)
	assert.Equal(t, 0.0, d.State().TripHours)
	assert.Equal(t, "03/04/2026", d.State().LastResetDate)
}

func TestChanges_String(t *testing.T) {
	ch := Changes(FieldPopup).With(FieldPopupTriggered)
	assert.Equal(t, "popup|popup_triggered", ch.String())
	assert.Equal(t, []Field{FieldPopup, FieldPopupTriggered}, ch.Fields())
}
