package dashboard

import (
	"math"

	"go.uber.org/zap"

	"github.com/taoyao-code/hmi-link/internal/metrics"
	"github.com/taoyao-code/hmi-link/internal/protocol/can"
)

// fuelUsageFactor 每次燃油速率变化按"一分钟"累加，单位换算为小时
const fuelUsageFactor = 60.0 / 3600.0

// fuelRateDivisor 原始速率到实际速率的换算
const fuelRateDivisor = 20.0

// Dispatcher 按标识符范围解码并应用"先比较后通知"策略。
// 非并发安全：只能在消费端单一执行上下文中调用。
type Dispatcher struct {
	state   State
	log     *zap.Logger
	metrics *metrics.LinkMetrics
}

// NewDispatcher 以默认状态创建分发器
func NewDispatcher(log *zap.Logger, m *metrics.LinkMetrics) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewLinkMetrics(nil)
	}
	return &Dispatcher{state: NewState(), log: log, metrics: m}
}

// State 返回当前状态的副本
func (d *Dispatcher) State() State { return d.state }

// Dispatch 处理一帧，返回变更集合；未知标识符静默忽略
func (d *Dispatcher) Dispatch(id uint32, payload []byte) Changes {
	if len(payload) < can.PayloadSize {
		d.metrics.FramesDiscarded.WithLabelValues("short_payload").Inc()
		d.log.Warn("payload too short", zap.Uint32("id", id), zap.Int("size", len(payload)))
		return 0
	}

	kind, index, class := can.Classify(id)
	switch class {
	case can.ClassUnknown:
		return 0
	case can.ClassInvalidIndex:
		d.metrics.FramesDiscarded.WithLabelValues("invalid_index").Inc()
		d.log.Warn("invalid category index",
			zap.String("kind", kind.String()), zap.Int("index", index), zap.Uint32("id", id))
		return 0
	}
	d.metrics.FramesDispatched.WithLabelValues(kind.String()).Inc()

	var ch Changes
	switch kind {
	case can.KindRPM:
		ch = d.setRPM(int(can.DecodeU16(payload)))
	case can.KindTelltale:
		ch = d.setTelltale(index, can.DecodeBit(payload))
	case can.KindGauge:
		ch = d.setGauge(index, MapPercent(can.DecodePercent(payload)))
	case can.KindEngineHours:
		ch = d.SetEngineHours(can.DecodeEngineHours(payload))
	case can.KindButton:
		ch = d.setButton(index, can.DecodeBit(payload))
	case can.KindFuelRate:
		ch = d.setFuelRate(int(can.DecodeU16(payload)))
	case can.KindDefRate:
		ch = d.setDefRate(int(can.DecodeU16(payload)))
	case can.KindPopup:
		ch = d.setPopup(can.DecodePopup(payload))
	case can.KindAvgEngineLoad:
		ch = d.setAvgEngineLoad(int(can.DecodeU16(payload)))
	}
	return ch
}

func (d *Dispatcher) setRPM(v int) Changes {
	if d.state.RPM == v {
		return 0
	}
	d.state.RPM = v
	return Changes(FieldRPM)
}

func (d *Dispatcher) setTelltale(i int, on bool) Changes {
	if d.state.Telltales[i] == on {
		return 0
	}
	d.state.Telltales[i] = on
	return Changes(FieldTelltales)
}

func (d *Dispatcher) setGauge(i, level int) Changes {
	if d.state.Gauges[i] == level {
		return 0
	}
	d.state.Gauges[i] = level
	return Changes(FieldGauges)
}

// SetEngineHours 更新发动机小时并重算行程小时；不校验单调性
func (d *Dispatcher) SetEngineHours(h float64) Changes {
	if d.state.EngineHours == h {
		return 0
	}
	d.state.EngineHours = h
	return Changes(FieldEngineHours) | d.recomputeTrip()
}

func (d *Dispatcher) recomputeTrip() Changes {
	t := tripHours(d.state.EngineHours, d.state.LastTripHours)
	if d.state.TripHours == t {
		return 0
	}
	d.state.TripHours = t
	return Changes(FieldTripHours)
}

// setButton 仅 ISO 与 Creep 有映射；其他有效索引不改状态
func (d *Dispatcher) setButton(i int, pressed bool) Changes {
	switch can.Button(i) {
	case can.ButtonISO:
		return d.setISO(pressed)
	case can.ButtonCreep:
		return d.SetCreepActive(pressed)
	default:
		d.log.Debug("safety button without mapped role", zap.Int("index", i), zap.Bool("pressed", pressed))
		return 0
	}
}

func (d *Dispatcher) setISO(v bool) Changes {
	if d.state.ISOActive == v {
		return 0
	}
	d.state.ISOActive = v
	return Changes(FieldISOActive)
}

// SetCreepActive 蠕行模式覆盖
func (d *Dispatcher) SetCreepActive(v bool) Changes {
	if d.state.CreepActive == v {
		return 0
	}
	d.state.CreepActive = v
	return Changes(FieldCreepActive)
}

// setFuelRate 每个不同的速率值累加一次油耗，与真实时间无关
func (d *Dispatcher) setFuelRate(v int) Changes {
	if d.state.FuelRate == v {
		return 0
	}
	d.state.FuelRate = v
	ch := Changes(FieldFuelRate)
	usage := d.state.FuelUsage + (float64(v)/fuelRateDivisor)*fuelUsageFactor
	if usage != d.state.FuelUsage {
		d.state.FuelUsage = usage
		ch = ch.With(FieldFuelUsage)
	}
	return ch
}

// setDefRate DEF 用量按当前行程小时重算（覆盖，不累加）
func (d *Dispatcher) setDefRate(v int) Changes {
	if d.state.DefRate == v {
		return 0
	}
	d.state.DefRate = v
	ch := Changes(FieldDefRate)
	usage := float64(v) * d.state.TripHours
	if usage != d.state.DefUsage {
		d.state.DefUsage = usage
		ch = ch.With(FieldDefUsage)
	}
	return ch
}

func (d *Dispatcher) setPopup(code int) Changes {
	if d.state.Popup == code {
		return 0
	}
	d.state.Popup = code
	return Changes(FieldPopup) | Changes(FieldPopupTriggered)
}

func (d *Dispatcher) setAvgEngineLoad(v int) Changes {
	if d.state.AvgEngineLoad == v {
		return 0
	}
	d.state.AvgEngineLoad = v
	return Changes(FieldAvgEngineLoad)
}

// SetLastTripHours 设置复位标记（复位时刻的发动机小时）并重算行程小时
func (d *Dispatcher) SetLastTripHours(h float64) Changes {
	if h < 0 {
		h = 0
	}
	var ch Changes
	if d.state.LastTripHours != h {
		d.state.LastTripHours = h
		ch = Changes(FieldLastTripHours)
	}
	return ch | d.recomputeTrip()
}

// SetLastResetDate 设置上次复位日期
func (d *Dispatcher) SetLastResetDate(date string) Changes {
	if d.state.LastResetDate == date {
		return 0
	}
	d.state.LastResetDate = date
	return Changes(FieldLastResetDate)
}

// ResetTrip 以当前发动机小时作为复位标记并记录日期
func (d *Dispatcher) ResetTrip(date string) Changes {
	return d.SetLastTripHours(d.state.EngineHours) | d.SetLastResetDate(date)
}

// SetFuelUsage 设置油耗累计值，饱和到 [0, 99999]
func (d *Dispatcher) SetFuelUsage(v float64) Changes {
	switch {
	case v < 0 || math.IsNaN(v):
		v = 0
	case v > MaxFuelUsage:
		v = MaxFuelUsage
	}
	if d.state.FuelUsage == v {
		return 0
	}
	d.state.FuelUsage = v
	return Changes(FieldFuelUsage)
}
