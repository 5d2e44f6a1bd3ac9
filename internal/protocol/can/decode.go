package can

import (
	"encoding/binary"
	"fmt"
)

// 以下解码函数要求 payload 至少 8 字节，由调用方保证。
// 解码不做语义范围校验（例如百分比 >100 原样返回）。

// DecodeU16 读取 bytes[6..8] 大端 u16
func DecodeU16(payload []byte) uint16 {
	return binary.BigEndian.Uint16(payload[6:8])
}

// DecodeBit 读取 byte[7] bit0
func DecodeBit(payload []byte) bool {
	return payload[7]&0x01 != 0
}

// DecodePercent 读取 byte[7]
func DecodePercent(payload []byte) int {
	return int(payload[7])
}

// DecodeEngineHoursRaw 读取 bytes[4..8] 大端 u32（小时×10）
func DecodeEngineHoursRaw(payload []byte) uint32 {
	return binary.BigEndian.Uint32(payload[4:8])
}

// DecodeEngineHours 原始值 / 10.0
func DecodeEngineHours(payload []byte) float64 {
	return float64(DecodeEngineHoursRaw(payload)) / 10.0
}

// DecodePopup 弹窗代码按有符号 16 位解释
func DecodePopup(payload []byte) int {
	return int(int16(DecodeU16(payload)))
}

// Decode 解码整帧为类型化读数
func Decode(f Frame) (Reading, error) {
	kind, idx, class := Classify(f.ID)
	switch class {
	case ClassUnknown:
		return Reading{}, fmt.Errorf("%w: 0x%08X", ErrUnknownID, f.ID)
	case ClassInvalidIndex:
		return Reading{Kind: kind, Index: idx}, fmt.Errorf("%w: 0x%08X", ErrInvalidIndex, f.ID)
	}

	p := f.Data[:]
	r := Reading{Kind: kind, Index: idx}
	switch kind {
	case KindRPM, KindFuelRate, KindDefRate, KindAvgEngineLoad:
		r.Value = float64(DecodeU16(p))
	case KindTelltale, KindButton:
		if DecodeBit(p) {
			r.Value = 1
		}
	case KindGauge:
		r.Value = float64(DecodePercent(p))
	case KindEngineHours:
		r.Value = DecodeEngineHours(p)
	case KindPopup:
		r.Value = float64(DecodePopup(p))
	}
	return r, nil
}
