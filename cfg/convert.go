package cfg

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

var errNotTimeType = fmt.Errorf("not a time type")

// convertValue 将数据树中的值转换为目标类型
func convertValue(src interface{}, dst reflect.Value) error {
	if !dst.CanSet() && dst.Kind() != reflect.Ptr {
		return fmt.Errorf("destination is not settable")
	}

	srcValue := reflect.ValueOf(src)
	if !srcValue.IsValid() {
		return nil
	}

	// 目标为指针时分配内存后递归
	// 新分配的结构体需要先设置默认值，配置里出现的字段再覆盖默认值
	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
			if dst.Type().Elem().Kind() == reflect.Struct {
				if err := SetDefaults(dst.Interface()); err != nil {
					return fmt.Errorf("failed to set defaults for new pointer: %v", err)
				}
			}
		}
		return convertValue(src, dst.Elem())
	}

	for srcValue.Kind() == reflect.Ptr {
		if srcValue.IsNil() {
			return nil
		}
		srcValue = srcValue.Elem()
	}

	// 类型完全匹配
	if srcValue.Type().AssignableTo(dst.Type()) {
		dst.Set(srcValue)
		return nil
	}

	// 特殊类型转换：time.Duration 和 time.Time
	if err := convertTimeTypes(srcValue, dst); err == nil {
		return nil
	} else if err != errNotTimeType {
		return err
	}

	switch dst.Kind() {
	case reflect.Map:
		return convertToMap(srcValue, dst)
	case reflect.Slice:
		return convertToSlice(srcValue, dst)
	case reflect.Struct:
		return convertToStruct(srcValue, dst)
	case reflect.Interface:
		if dst.Type().NumMethod() == 0 {
			dst.Set(srcValue)
			return nil
		}
	case reflect.String:
		// int 到 string 的直接转换是字符码转换，配置绑定里没有这种场景
		if srcValue.Kind() != reflect.String {
			return fmt.Errorf("cannot convert %v to %v", srcValue.Type(), dst.Type())
		}
	}

	if srcValue.Type().ConvertibleTo(dst.Type()) {
		dst.Set(srcValue.Convert(dst.Type()))
		return nil
	}

	return fmt.Errorf("cannot convert %v to %v", srcValue.Type(), dst.Type())
}

// convertTimeTypes 处理时间相关类型的转换
func convertTimeTypes(src, dst reflect.Value) error {
	dstType := dst.Type()

	if dstType == reflect.TypeOf(time.Duration(0)) {
		return convertToDuration(src, dst)
	}

	if dstType == reflect.TypeOf(time.Time{}) {
		return convertToTime(src, dst)
	}

	return errNotTimeType
}

// convertToDuration 将源值转换为 time.Duration
// 字符串用 time.ParseDuration 解析，整数视为纳秒，浮点数视为秒
func convertToDuration(src, dst reflect.Value) error {
	switch src.Kind() {
	case reflect.String:
		duration, err := time.ParseDuration(src.String())
		if err != nil {
			return fmt.Errorf("failed to parse duration %q: %v", src.String(), err)
		}
		dst.Set(reflect.ValueOf(duration))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.Set(reflect.ValueOf(time.Duration(src.Int())))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.Set(reflect.ValueOf(time.Duration(src.Uint())))
		return nil
	case reflect.Float32, reflect.Float64:
		dst.Set(reflect.ValueOf(time.Duration(src.Float() * float64(time.Second))))
		return nil
	}

	return fmt.Errorf("cannot convert %v to time.Duration", src.Type())
}

// convertToTime 将源值转换为 time.Time
// 字符串尝试多种时间格式，数字视为 Unix 时间戳（秒）
func convertToTime(src, dst reflect.Value) error {
	switch src.Kind() {
	case reflect.String:
		str := src.String()
		formats := []string{
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
			"15:04:05",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, str); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return fmt.Errorf("failed to parse time %q", str)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.Set(reflect.ValueOf(time.Unix(src.Int(), 0)))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.Set(reflect.ValueOf(time.Unix(int64(src.Uint()), 0)))
		return nil
	case reflect.Float32, reflect.Float64:
		timestamp := src.Float()
		seconds := int64(timestamp)
		nanoseconds := int64((timestamp - float64(seconds)) * 1e9)
		dst.Set(reflect.ValueOf(time.Unix(seconds, nanoseconds)))
		return nil
	}

	return fmt.Errorf("cannot convert %v to time.Time", src.Type())
}

// convertToMap 转换为 map 类型
func convertToMap(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return fmt.Errorf("source is not a map")
	}

	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	for _, key := range src.MapKeys() {
		dstValue := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(src.MapIndex(key).Interface(), dstValue); err != nil {
			return err
		}

		convertedKey := key
		for convertedKey.Kind() == reflect.Interface {
			convertedKey = convertedKey.Elem()
		}
		if !convertedKey.Type().AssignableTo(dst.Type().Key()) {
			if !convertedKey.Type().ConvertibleTo(dst.Type().Key()) {
				return fmt.Errorf("cannot convert key %v to %v", convertedKey.Type(), dst.Type().Key())
			}
			convertedKey = convertedKey.Convert(dst.Type().Key())
		}

		dst.SetMapIndex(convertedKey, dstValue)
	}

	return nil
}

// convertToSlice 转换为 slice 类型
func convertToSlice(src, dst reflect.Value) error {
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return fmt.Errorf("source is not a slice or array")
	}

	length := src.Len()
	dst.Set(reflect.MakeSlice(dst.Type(), length, length))

	for i := 0; i < length; i++ {
		dstItem := dst.Index(i)
		if dstItem.Kind() == reflect.Struct {
			if err := SetDefaults(dstItem.Addr().Interface()); err != nil {
				return fmt.Errorf("failed to set defaults for slice element: %v", err)
			}
		}
		if err := convertValue(src.Index(i).Interface(), dstItem); err != nil {
			return err
		}
	}

	return nil
}

// convertToStruct 转换为 struct 类型
// 字段名优先使用 cfg tag，然后是 json/yaml/toml/ini tag，最后是字段名本身
// 配置里没有出现的字段保持原值不变
func convertToStruct(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return fmt.Errorf("source is not a map")
	}

	dstType := dst.Type()

	for i := 0; i < dstType.NumField(); i++ {
		field := dstType.Field(i)
		fieldValue := dst.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		fieldName := fieldTagName(field)

		var srcFieldValue reflect.Value
		for _, key := range src.MapKeys() {
			keyValue := key
			for keyValue.Kind() == reflect.Interface {
				keyValue = keyValue.Elem()
			}
			if keyValue.Kind() == reflect.String && keyValue.String() == fieldName {
				srcFieldValue = src.MapIndex(key)
				break
			}
		}

		if srcFieldValue.IsValid() {
			if err := convertValue(srcFieldValue.Interface(), fieldValue); err != nil {
				return fmt.Errorf("failed to convert field %s: %v", field.Name, err)
			}
		}
	}

	return nil
}

// fieldTagName 获取字段在配置里的键名
func fieldTagName(field reflect.StructField) string {
	for _, tag := range []string{"cfg", "json", "yaml", "toml", "ini"} {
		if value := field.Tag.Get(tag); value != "" {
			name := strings.Split(value, ",")[0]
			if name != "" && name != "-" {
				return name
			}
		}
	}

	return field.Name
}
