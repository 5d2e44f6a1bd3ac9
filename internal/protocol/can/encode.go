package can

import (
	"encoding/binary"
	"fmt"
	"math"
)

// 取值范围
const (
	MaxEngineHours = 99999.9
	MaxPercent     = 100
	MinPercent     = 0
)

// Reading 一条类型化的遥测值
type Reading struct {
	Kind  Kind
	Index int     // 仅 telltale/button/gauge 使用
	Value float64 // 开关量以 1/0 表示
}

// On 开关量读数
func (r Reading) On() bool { return r.Value != 0 }

// ClampPercent 百分比饱和到 [0,100]
func ClampPercent(p int) int {
	if p < MinPercent {
		return MinPercent
	}
	if p > MaxPercent {
		return MaxPercent
	}
	return p
}

// ClampEngineHours 发动机小时饱和到 [0, 99999.9] 并保留一位小数
func ClampEngineHours(h float64) float64 {
	if math.IsNaN(h) || h < 0 {
		return 0
	}
	if h > MaxEngineHours {
		h = MaxEngineHours
	}
	return math.Round(h*10) / 10
}

// TruncateU16 浮点取整后截断为 16 位无符号数，小数部分丢弃
func TruncateU16(v float64) uint16 {
	if math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxInt64 || v <= math.MinInt64 {
		return 0
	}
	return uint16(int64(v))
}

func u16Frame(id uint32, v uint16) Frame {
	f := Frame{ID: id}
	binary.BigEndian.PutUint16(f.Data[6:8], v)
	return f
}

func bitFrame(id uint32, on bool) Frame {
	f := Frame{ID: id}
	if on {
		f.Data[7] = 0x01
	}
	return f
}

// EncodeRPM RPM 截断为 16 位写入 bytes[6..8]
func EncodeRPM(rpm int) Frame {
	return u16Frame(IDRPM, uint16(rpm))
}

// EncodeTelltale 指示灯开关写入 byte[7] bit0。
// 索引不做校验，越界会落到相邻标识符；外部输入先经 IDFor 或 Encode。
func EncodeTelltale(index int, on bool) Frame {
	return bitFrame(IDTelltaleBase+uint32(index), on)
}

// EncodeButton 按键按下/释放写入 byte[7] bit0；索引不做校验
func EncodeButton(index int, pressed bool) Frame {
	return bitFrame(IDButtonBase+uint32(index), pressed)
}

// EncodeGauge 仪表百分比（饱和到 0..100）写入 byte[7]；索引不做校验
func EncodeGauge(index int, percent int) Frame {
	f := Frame{ID: IDGaugeBase + uint32(index)}
	f.Data[7] = byte(ClampPercent(percent))
	return f
}

// EncodeEngineHours 小时×10 以大端 u32 写入 bytes[4..8]
func EncodeEngineHours(hours float64) Frame {
	f := Frame{ID: IDEngineHours}
	raw := uint32(math.Round(ClampEngineHours(hours) * 10))
	binary.BigEndian.PutUint32(f.Data[4:8], raw)
	return f
}

// EncodePopup 弹窗代码取低 16 位
func EncodePopup(code int) Frame {
	return u16Frame(IDPopup, uint16(code))
}

// EncodeFuelRate 燃油速率截断为 u16
func EncodeFuelRate(rate float64) Frame {
	return u16Frame(IDFuelRate, TruncateU16(rate))
}

// EncodeDefRate DEF 速率截断为 u16
func EncodeDefRate(rate float64) Frame {
	return u16Frame(IDDefRate, TruncateU16(rate))
}

// EncodeAvgEngineLoad 平均负载百分比（饱和到 0..100）
func EncodeAvgEngineLoad(percent int) Frame {
	return u16Frame(IDAvgEngineLoad, uint16(ClampPercent(percent)))
}

// Encode 按类别编码读数；分类索引越界返回 ErrInvalidIndex
func Encode(r Reading) (Frame, error) {
	if _, err := IDFor(r.Kind, r.Index); err != nil {
		return Frame{}, err
	}
	switch r.Kind {
	case KindRPM:
		return EncodeRPM(int(r.Value)), nil
	case KindTelltale:
		return EncodeTelltale(r.Index, r.On()), nil
	case KindButton:
		return EncodeButton(r.Index, r.On()), nil
	case KindGauge:
		return EncodeGauge(r.Index, int(r.Value)), nil
	case KindEngineHours:
		return EncodeEngineHours(r.Value), nil
	case KindPopup:
		return EncodePopup(int(r.Value)), nil
	case KindFuelRate:
		return EncodeFuelRate(r.Value), nil
	case KindDefRate:
		return EncodeDefRate(r.Value), nil
	case KindAvgEngineLoad:
		return EncodeAvgEngineLoad(int(r.Value)), nil
	}
	return Frame{}, fmt.Errorf("%w: %s", ErrUnknownID, r.Kind)
}
