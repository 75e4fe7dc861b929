package cfg

import (
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct 按 validate tag 校验结构体
// 非结构体目标和 nil 指针直接通过，time.Time 不参与校验
func ValidateStruct(object interface{}) error {
	if object == nil {
		return nil
	}

	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct || rv.Type() == reflect.TypeOf(time.Time{}) {
		return nil
	}

	return validate.Struct(rv.Interface())
}
