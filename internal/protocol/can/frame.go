package can

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// 帧格式常量
const (
	IDSize      = 4                    // 标识符长度（小端）
	PayloadSize = 8                    // 载荷长度
	FrameSize   = IDSize + PayloadSize // 线上帧长度 = 12
)

var (
	// ErrShortFrame 报文不足 12 字节
	ErrShortFrame = errors.New("can: frame too short")
	// ErrShortPayload 载荷不足 8 字节
	ErrShortPayload = errors.New("can: payload too short")
	// ErrUnknownID 标识符不在任何已知区段
	ErrUnknownID = errors.New("can: unknown identifier")
	// ErrInvalidIndex 标识符落在区段内但超出有效索引
	ErrInvalidIndex = errors.New("can: invalid category index")
)

// Frame 线上帧：4 字节小端标识符 + 8 字节载荷。
// 载荷内的多字节数值字段一律为大端，与标识符字节序不同。
type Frame struct {
	ID   uint32
	Data [PayloadSize]byte
}

// NewFrame 构造帧；载荷超过 8 字节截断，不足补零
func NewFrame(id uint32, payload []byte) Frame {
	f := Frame{ID: id}
	copy(f.Data[:], payload)
	return f
}

// Payload 返回载荷副本
func (f Frame) Payload() []byte {
	out := make([]byte, PayloadSize)
	copy(out, f.Data[:])
	return out
}

// Bytes 编码为 12 字节线上格式
func (f Frame) Bytes() []byte {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(buf[0:IDSize], f.ID)
	copy(buf[IDSize:], f.Data[:])
	return buf
}


// String renders the frame as "0xDE000400#00000000000005dc".
func (f Frame) String() string {
	return fmt.Sprintf("0x%08X#%s", f.ID, hex.EncodeToString(f.Data[:]))
}

// ParseFrame 解析线上报文。仅校验长度，超过 12 字节的尾部被忽略。
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < FrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}
	f := Frame{ID: binary.LittleEndian.Uint32(data[0:IDSize])}
	copy(f.Data[:], data[IDSize:FrameSize])
	return f, nil
}
