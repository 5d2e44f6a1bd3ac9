package can

import "fmt"

// 标识符（取值必须与现网保持一致）
const (
	IDRPM           uint32 = 0xDE000400
	IDTelltaleBase  uint32 = 0xDE001000
	IDButtonBase    uint32 = 0xDE002000
	IDGaugeBase     uint32 = 0xDE004000
	IDEngineHours   uint32 = 0xDE005000
	IDPopup         uint32 = 0xDE006000
	IDFuelRate      uint32 = 0xDE006001
	IDDefRate       uint32 = 0xDE006002
	IDAvgEngineLoad uint32 = 0xDE006003

	// 带索引的类别占用以基址开头的 256 个标识符
	indexedBlock uint32 = 0x100
)

// 各索引类别的有效数量
const (
	TelltaleCount = 10
	ButtonCount   = 8
	GaugeCount    = 5
)

// Telltale 指示灯索引
type Telltale int

const (
	TelltaleStop Telltale = iota
	TelltaleCaution
	TelltaleSeatBelt
	TelltaleParkBrake
	TelltaleWorkLamp
	TelltaleBeacon
	TelltaleRegeneration
	TelltaleGridHeater
	TelltaleHydraulicLock
	TelltaleFootPedal
)

// Gauge 仪表索引
type Gauge int

const (
	GaugeFuel Gauge = iota
	GaugeCoolant
	GaugeDef
	GaugeBattery
	GaugeHydraulic
)

// Button 安全按键索引，仅 ISO 与 Creep 有映射角色
type Button int

const (
	ButtonISO   Button = 0
	ButtonDEF   Button = 1
	ButtonCreep Button = 2
)

// Kind 帧类别
type Kind int

const (
	KindUnknown Kind = iota
	KindRPM
	KindTelltale
	KindButton
	KindGauge
	KindEngineHours
	KindPopup
	KindFuelRate
	KindDefRate
	KindAvgEngineLoad
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindRPM:           "rpm",
	KindTelltale:      "telltale",
	KindButton:        "button",
	KindGauge:         "gauge",
	KindEngineHours:   "engine_hours",
	KindPopup:         "popup",
	KindFuelRate:      "fuel_rate",
	KindDefRate:       "def_rate",
	KindAvgEngineLoad: "avg_engine_load",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind 按名称查找类别（场景文件与 HTTP 接口使用）
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && k != KindUnknown {
			return k, true
		}
	}
	return KindUnknown, false
}

// Class 标识符归类结果
type Class int

const (
	ClassUnknown      Class = iota // 不在任何区段，静默忽略
	ClassKnown                     // 可解码
	ClassInvalidIndex              // 在索引区段内但超出有效范围
)

type indexedRange struct {
	kind Kind
	base uint32
	span int
}

var indexedRanges = []indexedRange{
	{KindTelltale, IDTelltaleBase, TelltaleCount},
	{KindButton, IDButtonBase, ButtonCount},
	{KindGauge, IDGaugeBase, GaugeCount},
}

var scalarIDs = map[uint32]Kind{
	IDRPM:           KindRPM,
	IDEngineHours:   KindEngineHours,
	IDPopup:         KindPopup,
	IDFuelRate:      KindFuelRate,
	IDDefRate:       KindDefRate,
	IDAvgEngineLoad: KindAvgEngineLoad,
}

// Classify 根据标识符区段确定类别与索引
func Classify(id uint32) (Kind, int, Class) {
	if k, ok := scalarIDs[id]; ok {
		return k, 0, ClassKnown
	}
	for _, r := range indexedRanges {
		if id < r.base || id >= r.base+indexedBlock {
			continue
		}
		idx := int(id - r.base)
		if idx >= r.span {
			return r.kind, idx, ClassInvalidIndex
		}
		return r.kind, idx, ClassKnown
	}
	return KindUnknown, 0, ClassUnknown
}

// IDFor 返回类别与索引对应的标识符；索引越界返回 ErrInvalidIndex
func IDFor(kind Kind, index int) (uint32, error) {
	for _, r := range indexedRanges {
		if r.kind != kind {
			continue
		}
		if index < 0 || index >= r.span {
			return 0, fmt.Errorf("%w: %s index %d", ErrInvalidIndex, kind, index)
		}
		return r.base + uint32(index), nil
	}
	for id, k := range scalarIDs {
		if k == kind {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownID, kind)
}
