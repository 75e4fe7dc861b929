package cfg

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SetDefaults 按 def tag 为结构体字段设置默认值
// 只有零值字段会被设置，嵌套结构体递归处理
// nil 指针字段表示该配置段不存在，不会被分配
func SetDefaults(object interface{}) error {
	if object == nil {
		return fmt.Errorf("object cannot be nil")
	}

	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("object must be a non-nil pointer")
	}

	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct || rv.Type() == reflect.TypeOf(time.Time{}) {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		if err := setDefaults(fieldValue); err != nil {
			return fmt.Errorf("failed to set defaults for field %s: %v", field.Name, err)
		}

		defTag := field.Tag.Get("def")
		if defTag == "" || !fieldValue.IsZero() {
			continue
		}

		// 带 def tag 的 nil 指针需要先分配才能承载默认值
		if fieldValue.Kind() == reflect.Ptr && fieldValue.IsNil() {
			fieldValue.Set(reflect.New(fieldValue.Type().Elem()))
			fieldValue = fieldValue.Elem()
		}

		if err := setDefaultValue(fieldValue, defTag); err != nil {
			return fmt.Errorf("failed to set default value for field %s: %v", field.Name, err)
		}
	}

	return nil
}

// setDefaultValue 根据字段类型解析 def tag 并赋值
func setDefaultValue(rv reflect.Value, defValue string) error {
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(defValue)
		return nil

	case reflect.Bool:
		val, err := strconv.ParseBool(defValue)
		if err != nil {
			return fmt.Errorf("invalid bool value %q: %v", defValue, err)
		}
		rv.SetBool(val)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type() == reflect.TypeOf(time.Duration(0)) {
			return setDurationDefault(rv, defValue)
		}
		val, err := strconv.ParseInt(defValue, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q: %v", defValue, err)
		}
		rv.SetInt(val)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		val, err := strconv.ParseUint(defValue, 0, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q: %v", defValue, err)
		}
		rv.SetUint(val)
		return nil

	case reflect.Float32, reflect.Float64:
		val, err := strconv.ParseFloat(defValue, rv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q: %v", defValue, err)
		}
		rv.SetFloat(val)
		return nil

	case reflect.Slice:
		return setSliceDefault(rv, defValue)
	}

	return fmt.Errorf("unsupported type %v", rv.Type())
}

// setDurationDefault 解析 time.Duration 默认值，纯数字视为纳秒
func setDurationDefault(rv reflect.Value, defValue string) error {
	duration, err := time.ParseDuration(defValue)
	if err != nil {
		val, numErr := strconv.ParseInt(defValue, 10, 64)
		if numErr != nil {
			return fmt.Errorf("invalid duration value %q: %v", defValue, err)
		}
		duration = time.Duration(val)
	}
	rv.Set(reflect.ValueOf(duration))
	return nil
}

// setSliceDefault 解析切片默认值，元素用逗号分隔
func setSliceDefault(rv reflect.Value, defValue string) error {
	parts := strings.Split(defValue, ",")
	slice := reflect.MakeSlice(rv.Type(), len(parts), len(parts))

	for i, part := range parts {
		if err := setDefaultValue(slice.Index(i), strings.TrimSpace(part)); err != nil {
			return fmt.Errorf("failed to set slice element %d: %v", i, err)
		}
	}

	rv.Set(slice)
	return nil
}
