// Package dashboard 仪表端：帧分发/状态机、单线程消费循环与按键命令发布。
package dashboard

import "github.com/taoyao-code/hmi-link/internal/protocol/can"

// 默认值
const (
	DefaultLastResetDate = "11/05/1998"
	DefaultGaugeLevel    = 1
	MinGaugeLevel        = 1
	MaxGaugeLevel        = 8

	// MaxFuelUsage 油耗累计值上限
	MaxFuelUsage = 99999.0
)

// State 解码后的仪表状态。值类型，可整体复制作为快照。
type State struct {
	RPM           int                     `json:"rpm"`
	Popup         int                     `json:"popup"`
	Telltales     [can.TelltaleCount]bool `json:"telltales"`
	Gauges        [can.GaugeCount]int     `json:"gauges"`
	EngineHours   float64                 `json:"engineHours"`
	TripHours     float64                 `json:"tripHours"`
	LastTripHours float64                 `json:"lastTripHours"`
	LastResetDate string                  `json:"lastResetDate"`
	FuelRate      int                     `json:"fuelRate"`
	FuelUsage     float64                 `json:"fuelUsage"`
	DefRate       int                     `json:"defRate"`
	DefUsage      float64                 `json:"defUsage"`
	AvgEngineLoad int                     `json:"avgEngineLoad"`
	ISOActive     bool                    `json:"isoActive"`
	CreepActive   bool                    `json:"creepActive"`
}

// NewState 返回带默认值的状态：指示灯全亮，仪表 1 格，其余为零
func NewState() State {
	s := State{LastResetDate: DefaultLastResetDate}
	for i := range s.Telltales {
		s.Telltales[i] = true
	}
	for i := range s.Gauges {
		s.Gauges[i] = DefaultGaugeLevel
	}
	return s
}

// levelThresholds 百分比到格数的上界（含）
var levelThresholds = [...]int{12, 25, 37, 50, 62, 75, 87}

// MapPercent 百分比映射到 1..8 格；低于 0 视为 1 格，高于 100 视为 8 格
func MapPercent(percent int) int {
	for i, limit := range levelThresholds {
		if percent <= limit {
			return i + 1
		}
	}
	return MaxGaugeLevel
}

func tripHours(engineHours, lastTripHours float64) float64 {
	t := engineHours - lastTripHours
	if t < 0 {
		return 0
	}
	return t
}
