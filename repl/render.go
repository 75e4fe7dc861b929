package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
)

// renderRows 把查询结果渲染成对齐的文本表格，列序跟随表结构，ID 列在首位。
// 行里缺失的字段渲染为空白
func renderRows(w io.Writer, t schema.Table, rows []engine.Row) {
	headers := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		headers = append(headers, col.Name)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(headers))
		for i, h := range headers {
			line[i] = formatValue(row[h])
			if len(line[i]) > widths[i] {
				widths[i] = len(line[i])
			}
		}
		cells = append(cells, line)
	}

	border := borderLine(widths)
	fmt.Fprintln(w, border)
	fmt.Fprintln(w, rowLine(headers, widths))
	fmt.Fprintln(w, border)
	for _, line := range cells {
		fmt.Fprintln(w, rowLine(line, widths))
	}
	fmt.Fprintln(w, border)
}

func borderLine(widths []int) string {
	var sb strings.Builder
	for _, w := range widths {
		sb.WriteString("+")
		sb.WriteString(strings.Repeat("-", w+2))
	}
	sb.WriteString("+")
	return sb.String()
}

func rowLine(values []string, widths []int) string {
	var sb strings.Builder
	for i, v := range values {
		sb.WriteString(fmt.Sprintf("| %-*s ", widths[i], v))
	}
	sb.WriteString("|")
	return sb.String()
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
