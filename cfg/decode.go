package cfg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// decode 根据文件扩展名将原始数据解码为 map/slice 数据树
func decode(ext string, data []byte) (interface{}, error) {
	switch ext {
	case ".json":
		var result interface{}
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		return result, nil
	case ".yaml", ".yml":
		var result interface{}
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		return result, nil
	case ".toml":
		var result map[string]interface{}
		if err := toml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode TOML: %w", err)
		}
		return result, nil
	case ".ini":
		return decodeIni(data)
	}

	return nil, fmt.Errorf("unsupported file extension: %s", ext)
}

// decodeIni 解码 INI 数据
// 小节名里的点号表示嵌套，例如 [storage.options] 会生成两层 map
func decodeIni(data []byte) (interface{}, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:           true,
		AllowShadows:               true,
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode INI: %w", err)
	}

	result := make(map[string]interface{})

	for _, section := range file.Sections() {
		target := result
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				child, ok := target[part].(map[string]interface{})
				if !ok {
					child = make(map[string]interface{})
					target[part] = child
				}
				target = child
			}
		}

		for _, key := range section.Keys() {
			target[key.Name()] = parseIniKey(key)
		}
	}

	return result, nil
}

// parseIniKey 解析 INI 键的值，重复键生成数组
func parseIniKey(key *ini.Key) interface{} {
	if shadows := key.StringsWithShadows(","); len(shadows) > 1 {
		values := make([]interface{}, len(shadows))
		for i, shadow := range shadows {
			values[i] = parseIniValue(shadow)
		}
		return values
	}

	return parseIniValue(key.String())
}

// parseIniValue 解析字符串值，尝试自动类型转换
// INI 没有类型信息，按 布尔 -> 整数 -> 浮点 -> 字符串 的顺序推断
func parseIniValue(value string) interface{} {
	if value == "" {
		return ""
	}

	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}

	if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
		return intVal
	}

	if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
		return floatVal
	}

	return value
}
