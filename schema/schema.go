package schema

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidValue       = errors.New("invalid value")
	ErrTableAlreadyExists = errors.New("table already exists")
	ErrTableDoesNotExist  = errors.New("table does not exist")
	ErrTableSchema        = errors.New("table schema error")
)

// IDColumn 保留的自增主键列名，建表时自动添加，不允许用户声明或修改
const IDColumn = "ID"

// ColumnType 列类型，仅支持 int/bool/string 三种
type ColumnType string

const (
	ColumnTypeInt    ColumnType = "int"
	ColumnTypeBool   ColumnType = "bool"
	ColumnTypeString ColumnType = "string"
)

func (t ColumnType) Valid() bool {
	switch t {
	case ColumnTypeInt, ColumnTypeBool, ColumnTypeString:
		return true
	}
	return false
}

// Column 列定义
type Column struct {
	Name string     `json:"name" bson:"name" msgpack:"name"`
	Type ColumnType `json:"type" bson:"type" msgpack:"type"`
}

// Table 表结构，列有序，首列固定为 ID 列
type Table struct {
	Columns []Column `json:"columns" bson:"columns" msgpack:"columns"`
}

// Column 根据列名查找列定义
func (t Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Metadata 表名到表结构的映射，操作均为写时复制，不修改入参
type Metadata map[string]Table

// TableInfo describe 命令的返回结果
type TableInfo struct {
	Table   string `json:"table"`
	Columns string `json:"columns"`
	Count   int    `json:"count"`
}

// CreateTable 新建表结构，列声明格式为 name:type，自动在首列添加 ID 列。
// 表已存在时返回 ErrTableAlreadyExists，列声明非法时返回 ErrInvalidValue
func CreateTable(md Metadata, name string, columnSpecs []string) (Metadata, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrap(ErrInvalidValue, "table name is empty")
	}
	if _, exists := md[name]; exists {
		return nil, errors.Wrapf(ErrTableAlreadyExists, "table %q", name)
	}
	if len(columnSpecs) == 0 {
		return nil, errors.Wrapf(ErrInvalidValue, "table %q has no columns", name)
	}

	columns := []Column{{Name: IDColumn, Type: ColumnTypeInt}}
	seen := map[string]bool{IDColumn: true}
	for _, spec := range columnSpecs {
		col, err := parseColumnSpec(spec)
		if err != nil {
			return nil, err
		}
		if seen[col.Name] {
			return nil, errors.Wrapf(ErrInvalidValue, "duplicate column %q", col.Name)
		}
		seen[col.Name] = true
		columns = append(columns, col)
	}

	next := make(Metadata, len(md)+1)
	for k, v := range md {
		next[k] = v
	}
	next[name] = Table{Columns: columns}
	return next, nil
}

func parseColumnSpec(spec string) (Column, error) {
	idx := strings.Index(spec, ":")
	if idx < 0 {
		return Column{}, errors.Wrapf(ErrInvalidValue, "column spec %q missing ':'", spec)
	}
	name := strings.TrimSpace(spec[:idx])
	typ := strings.TrimSpace(spec[idx+1:])
	if name == "" || typ == "" {
		return Column{}, errors.Wrapf(ErrInvalidValue, "column spec %q", spec)
	}
	if name == IDColumn {
		return Column{}, errors.Wrapf(ErrInvalidValue, "column name %q is reserved", name)
	}
	if !ColumnType(typ).Valid() {
		return Column{}, errors.Wrapf(ErrInvalidValue, "column type %q", typ)
	}
	return Column{Name: name, Type: ColumnType(typ)}, nil
}

// DropTable 删除表结构，表不存在时返回 ErrTableDoesNotExist
func DropTable(md Metadata, name string) (Metadata, error) {
	name = strings.TrimSpace(name)
	if _, exists := md[name]; !exists {
		return nil, errors.Wrapf(ErrTableDoesNotExist, "table %q", name)
	}

	next := make(Metadata, len(md))
	for k, v := range md {
		if k == name {
			continue
		}
		next[k] = v
	}
	return next, nil
}

// ListTables 返回排序后的表名列表
func ListTables(md Metadata) []string {
	names := make([]string, 0, len(md))
	for name := range md {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe 返回表结构摘要和行数。表不存在时返回 ErrTableDoesNotExist，
// 表结构损坏（无列定义）时返回 ErrTableSchema
func Describe(md Metadata, name string, rowCount int) (TableInfo, error) {
	name = strings.TrimSpace(name)
	table, exists := md[name]
	if !exists {
		return TableInfo{}, errors.Wrapf(ErrTableDoesNotExist, "table %q", name)
	}
	if len(table.Columns) == 0 {
		return TableInfo{}, errors.Wrapf(ErrTableSchema, "table %q has no columns", name)
	}

	parts := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		parts = append(parts, col.Name+":"+string(col.Type))
	}
	return TableInfo{
		Table:   name,
		Columns: strings.Join(parts, ", "),
		Count:   rowCount,
	}, nil
}
