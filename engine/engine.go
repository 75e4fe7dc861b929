package engine

import (
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
)

// Row 一行记录，值为规范化后的标量：int64/bool/string
type Row = map[string]any

// CloneRow 复制一行
func CloneRow(row Row) Row {
	clone := make(Row, len(row))
	for k, v := range row {
		clone[k] = v
	}
	return clone
}

// CloneRows 逐行复制整张表的数据
func CloneRows(rows []Row) []Row {
	clones := make([]Row, len(rows))
	for i, row := range rows {
		clones[i] = CloneRow(row)
	}
	return clones
}

func nextID(rows []Row) int64 {
	var maxID int64
	for _, row := range rows {
		if id, ok := row[schema.IDColumn].(int64); ok && id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

// Insert 追加一行，自动分配自增 ID。
// 值个数必须等于除 ID 外的列数，任一值校验失败则整行不插入。
// 返回追加后的新切片和新行的 ID，入参不被修改
func Insert(t schema.Table, rows []Row, values []any) ([]Row, int64, error) {
	expected := len(t.Columns) - 1
	if len(values) != expected {
		return nil, 0, errors.Wrapf(schema.ErrInvalidValue, "expect %d values, got %d", expected, len(values))
	}

	id := nextID(rows)
	row := Row{schema.IDColumn: id}
	for i, col := range t.Columns[1:] {
		v, err := schema.ValidateValue(col.Type, values[i])
		if err != nil {
			return nil, 0, errors.WithMessagef(err, "column %q", col.Name)
		}
		row[col.Name] = v
	}

	next := make([]Row, 0, len(rows)+1)
	next = append(next, rows...)
	next = append(next, row)
	return next, id, nil
}

// Select 按条件过滤行，filter 为 nil 时返回全部行的浅拷贝，顺序不变
func Select(rows []Row, filter *Filter) []Row {
	if filter == nil {
		result := make([]Row, len(rows))
		copy(result, rows)
		return result
	}

	result := []Row{}
	for _, row := range rows {
		if filter.Match(row) {
			result = append(result, row)
		}
	}
	return result
}

// Update 按条件更新行。set 子句先整体校验，任何一项非法则不触碰任何行。
// ID 列不允许更新。返回更新后的新切片和更新的行数，入参和原有行均不被修改
func Update(t schema.Table, rows []Row, set map[string]any, filter *Filter) ([]Row, int64, error) {
	if filter == nil {
		return nil, 0, errors.Wrap(schema.ErrInvalidValue, "where clause is required")
	}
	if _, exists := set[schema.IDColumn]; exists {
		return nil, 0, errors.Wrapf(schema.ErrInvalidValue, "column %q is immutable", schema.IDColumn)
	}

	validated := make(map[string]any, len(set))
	for key, val := range set {
		col, ok := t.Column(key)
		if !ok {
			return nil, 0, errors.Wrapf(schema.ErrInvalidValue, "unknown column %q", key)
		}
		v, err := schema.ValidateValue(col.Type, val)
		if err != nil {
			return nil, 0, errors.WithMessagef(err, "column %q", key)
		}
		validated[key] = v
	}

	next := make([]Row, len(rows))
	var updated int64
	for i, row := range rows {
		if !filter.Match(row) {
			next[i] = row
			continue
		}
		clone := CloneRow(row)
		for key, val := range validated {
			clone[key] = val
		}
		next[i] = clone
		updated++
	}
	return next, updated, nil
}

// Delete 按条件删除行，保留行保持原有顺序。
// 返回删除后的新切片和删除的行数，入参不被修改
func Delete(rows []Row, filter *Filter) ([]Row, int64, error) {
	if filter == nil {
		return nil, 0, errors.Wrap(schema.ErrInvalidValue, "where clause is required")
	}

	next := make([]Row, 0, len(rows))
	for _, row := range rows {
		if filter.Match(row) {
			continue
		}
		next = append(next, row)
	}
	return next, int64(len(rows) - len(next)), nil
}
