package engine

import (
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
)

// Filter 单字段等值过滤条件
type Filter struct {
	Field string
	Value any
}

// NewFilter 从 where 子句构造过滤条件，要求恰好一个键值对
func NewFilter(clause map[string]any) (*Filter, error) {
	if len(clause) != 1 {
		return nil, errors.Wrapf(schema.ErrInvalidValue, "where clause requires exactly one condition, got %d", len(clause))
	}

	var filter Filter
	for key, value := range clause {
		filter = Filter{Field: key, Value: value}
	}
	return &filter, nil
}

// Match 判断行是否满足条件，字段缺失视为不匹配
func (f *Filter) Match(row Row) bool {
	value, exists := row[f.Field]
	if !exists {
		return false
	}
	return value == f.Value
}
