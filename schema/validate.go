package schema

import (
	"github.com/pkg/errors"
)

// ValidateValue 校验标量值是否符合声明的列类型，通过时返回原值。
// 类型不匹配或列类型本身非法时返回 ErrInvalidValue
func ValidateValue(typ ColumnType, value any) (any, error) {
	switch typ {
	case ColumnTypeInt:
		v, ok := value.(int64)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidValue, "value %#v is not int", value)
		}
		return v, nil
	case ColumnTypeBool:
		v, ok := value.(bool)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidValue, "value %#v is not bool", value)
		}
		return v, nil
	case ColumnTypeString:
		v, ok := value.(string)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidValue, "value %#v is not string", value)
		}
		return v, nil
	}
	return nil, errors.Wrapf(ErrInvalidValue, "unsupported column type %q", typ)
}
