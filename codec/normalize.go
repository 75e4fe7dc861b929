package codec

import (
	"encoding/json"
	"math"

	"github.com/hatlonely/minidb/engine"
)

// NormalizeValue 将解码器产出的数值类型统一折叠为 int64。
// bool 和 string 原样返回，非整数浮点数原样返回
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v)
		}
		return v
	case float32:
		return NormalizeValue(float64(v))
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return int64(v)
		}
		return v
	}
	return value
}

// NormalizeRow 规范化一行中的所有值
func NormalizeRow(row engine.Row) engine.Row {
	for k, v := range row {
		row[k] = NormalizeValue(v)
	}
	return row
}

// NormalizeRows 规范化整张表的数据
func NormalizeRows(rows []engine.Row) []engine.Row {
	for i, row := range rows {
		rows[i] = NormalizeRow(row)
	}
	return rows
}
