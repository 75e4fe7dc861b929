package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
)

// Config 配置对象，持有从配置文件解码出来的数据树
// 通过 Sub 获取子配置，通过 ConvertTo 绑定到结构体
type Config struct {
	data interface{}
}

// NewConfig 从文件中加载配置
// 根据文件后缀自动选择对应的解码器：
//
//	.json -> JSON
//	.yaml/.yml -> YAML
//	.toml -> TOML
//	.ini -> INI
func NewConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename cannot be empty")
	}

	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	data, err := decode(ext, buf)
	if err != nil {
		return nil, err
	}

	return &Config{data: data}, nil
}

// NewConfigWithData 直接用已解码的数据构造配置对象
func NewConfigWithData(data interface{}) *Config {
	return &Config{data: data}
}

// Data 获取配置的原始数据
func (c *Config) Data() interface{} {
	return c.data
}

// Sub 获取子配置对象
// key 可以包含点号（.）表示多级嵌套，[]表示数组索引
// 例如 "storage.options.endpoints[0]"
func (c *Config) Sub(key string) *Config {
	if key == "" {
		return c
	}

	return &Config{data: c.getValue(key)}
}

// ConvertTo 将配置数据绑定到结构体或者 map/slice 等任意结构
// 绑定前先按 def tag 设置默认值，绑定后按 validate tag 校验
func (c *Config) ConvertTo(object interface{}) error {
	if c == nil {
		return nil
	}

	if err := SetDefaults(object); err != nil {
		return fmt.Errorf("failed to set defaults: %v", err)
	}

	if err := convertValue(c.data, reflect.ValueOf(object)); err != nil {
		return err
	}

	if err := ValidateStruct(object); err != nil {
		return fmt.Errorf("validation failed: %v", err)
	}

	return nil
}

// getValue 根据 key 获取嵌套的值
func (c *Config) getValue(key string) interface{} {
	keys := parseKey(key)
	current := c.data

	for _, k := range keys {
		current = getValueByKey(current, k)
		if current == nil {
			return nil
		}
	}

	return current
}

// parseKey 解析 key 字符串，支持点号和数组索引
func parseKey(key string) []string {
	var keys []string
	var current string
	inBracket := false

	for _, char := range key {
		switch char {
		case '.':
			if !inBracket {
				if current != "" {
					keys = append(keys, current)
					current = ""
				}
			} else {
				current += string(char)
			}
		case '[':
			if current != "" {
				keys = append(keys, current)
				current = ""
			}
			inBracket = true
		case ']':
			if inBracket {
				if current != "" {
					keys = append(keys, current)
					current = ""
				}
				inBracket = false
			} else {
				current += string(char)
			}
		default:
			current += string(char)
		}
	}

	if current != "" {
		keys = append(keys, current)
	}

	return keys
}

// getValueByKey 通过单个 key 获取值，支持 map 和数组
func getValueByKey(data interface{}, key string) interface{} {
	if data == nil {
		return nil
	}

	switch v := data.(type) {
	case map[string]interface{}:
		return v[key]
	case map[interface{}]interface{}:
		return v[key]
	case []interface{}:
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil
		}
		if index < 0 || index >= len(v) {
			return nil
		}
		return v[index]
	}

	return nil
}
