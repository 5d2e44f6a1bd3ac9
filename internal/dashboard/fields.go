package dashboard

import "strings"

// Field 变更通知通道，每个字段一位
type Field uint32

const (
	FieldRPM Field = 1 << iota
	FieldTelltales
	FieldGauges
	FieldEngineHours
	FieldTripHours
	FieldLastTripHours
	FieldLastResetDate
	FieldFuelRate
	FieldFuelUsage
	FieldDefRate
	FieldDefUsage
	FieldAvgEngineLoad
	FieldPopup
	FieldPopupTriggered
	FieldISOActive
	FieldCreepActive

	fieldEnd
)

var fieldNames = map[Field]string{
	FieldRPM:            "rpm",
	FieldTelltales:      "telltales",
	FieldGauges:         "gauges",
	FieldEngineHours:    "engine_hours",
	FieldTripHours:      "trip_hours",
	FieldLastTripHours:  "last_trip_hours",
	FieldLastResetDate:  "last_reset_date",
	FieldFuelRate:       "fuel_rate",
	FieldFuelUsage:      "fuel_usage",
	FieldDefRate:        "def_rate",
	FieldDefUsage:       "def_usage",
	FieldAvgEngineLoad:  "avg_engine_load",
	FieldPopup:          "popup",
	FieldPopupTriggered: "popup_triggered",
	FieldISOActive:      "iso_active",
	FieldCreepActive:    "creep_active",
}

func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return "unknown"
}

// Changes 一次更新产生的变更集合
type Changes uint32

// Has 是否包含字段
func (c Changes) Has(f Field) bool { return c&Changes(f) != 0 }

// With 加入字段
func (c Changes) With(f Field) Changes { return c | Changes(f) }

// Empty 无变更
func (c Changes) Empty() bool { return c == 0 }

// Fields 按定义顺序展开
func (c Changes) Fields() []Field {
	var out []Field
	for f := Field(1); f < fieldEnd; f <<= 1 {
		if c.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (c Changes) String() string {
	fs := c.Fields()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return strings.Join(names, "|")
}
