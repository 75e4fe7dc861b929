package parser

import (
	"strconv"
	"strings"

	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
)

// SplitCommas 按逗号拆分文本，忽略双引号内的逗号。
// 引号内 \x 转义为 x，"" 转义为一个双引号，引号本身保留在结果中
func SplitCommas(text string) []string {
	parts := []string{}
	var buf strings.Builder
	inQuotes := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if inQuotes && ch == '\\' && i+1 < len(text) {
			buf.WriteByte(text[i+1])
			i++
			continue
		}

		if ch == '"' {
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				buf.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
			buf.WriteByte(ch)
			continue
		}

		if ch == ',' && !inQuotes {
			parts = append(parts, buf.String())
			buf.Reset()
			continue
		}

		buf.WriteByte(ch)
	}

	parts = append(parts, buf.String())
	return parts
}

// splitOneEquals 按引号外唯一的 '=' 拆分 key=value，零个或多个 '=' 均视为非法
func splitOneEquals(part string) (string, string, error) {
	inQuotes := false
	eqPos := -1

	for i := 0; i < len(part); i++ {
		ch := part[i]

		if inQuotes && ch == '\\' && i+1 < len(part) {
			i++
			continue
		}

		if ch == '"' {
			if inQuotes && i+1 < len(part) && part[i+1] == '"' {
				i++
				continue
			}
			inQuotes = !inQuotes
			continue
		}

		if ch == '=' && !inQuotes {
			if eqPos >= 0 {
				return "", "", errors.Wrapf(schema.ErrInvalidValue, "assignment %q has multiple '='", part)
			}
			eqPos = i
		}
	}

	if eqPos < 0 {
		return "", "", errors.Wrapf(schema.ErrInvalidValue, "assignment %q missing '='", part)
	}

	key := strings.TrimSpace(part[:eqPos])
	val := strings.TrimSpace(part[eqPos+1:])
	if key == "" {
		return "", "", errors.Wrapf(schema.ErrInvalidValue, "assignment %q has empty key", part)
	}
	return key, val, nil
}

// ParseScalar 将文本转换为 int64/bool/string。
// 双引号包裹的内容原样作为字符串，不再做任何转换
func ParseScalar(raw string) any {
	s := strings.TrimSpace(raw)

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}

	if isInteger(s) {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	}

	return s
}

func isInteger(s string) bool {
	digits := s
	if strings.HasPrefix(s, "-") {
		digits = s[1:]
	}
	if digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

// ParseValues 解析 values(...) 括号内的内容，空 token 直接跳过
func ParseValues(inner string) []any {
	if strings.TrimSpace(inner) == "" {
		return []any{}
	}

	result := []any{}
	for _, part := range SplitCommas(inner) {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		result = append(result, ParseScalar(token))
	}
	return result
}

// ParseAssignments 解析 'a = 1, b = "x"' 形式的赋值列表，重复键后者覆盖前者
func ParseAssignments(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Wrap(schema.ErrInvalidValue, "assignments is empty")
	}

	result := map[string]any{}
	for _, raw := range SplitCommas(text) {
		part := strings.TrimSpace(raw)
		if part == "" {
			return nil, errors.Wrapf(schema.ErrInvalidValue, "assignment %q is empty", raw)
		}

		key, val, err := splitOneEquals(part)
		if err != nil {
			return nil, err
		}
		result[key] = ParseScalar(val)
	}
	return result, nil
}

// ParseWhere 解析 where 条件，如 'age = 28'
func ParseWhere(wherePart string) (map[string]any, error) {
	return ParseAssignments(wherePart)
}

// ParseSet 解析 set 表达式，如 'age = 29, active = true'
func ParseSet(setPart string) (map[string]any, error) {
	return ParseAssignments(setPart)
}
