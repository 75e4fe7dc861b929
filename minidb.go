package minidb

import (
	"context"
	"strings"
	"time"

	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/parser"
	"github.com/hatlonely/minidb/schema"
	"github.com/hatlonely/minidb/storage"
	"github.com/pkg/errors"
)

// Options 数据库初始化选项
type Options struct {
	Storage storage.StorageOptions `cfg:"storage"`
}

// DB 数据库门面，提供表管理和增删改查操作。
// 每次操作都从存储加载最新状态，不在内存中长期持有数据，
// 变更操作成功后立即全量写回
type DB struct {
	storage storage.Storage
}

// NewDBWithOptions 根据选项创建数据库，存储后端由 options.Storage 决定
func NewDBWithOptions(options *Options) (*DB, error) {
	if options == nil {
		options = &Options{}
	}

	s, err := storage.NewStorageWithOptions(&options.Storage)
	if err != nil {
		return nil, errors.WithMessage(err, "storage.NewStorageWithOptions failed")
	}

	return &DB{storage: s}, nil
}

// NewDBWithStorage 在已有的存储后端上创建数据库
func NewDBWithStorage(s storage.Storage) (*DB, error) {
	if s == nil {
		return nil, errors.New("storage is required")
	}

	return &DB{storage: s}, nil
}

// CreateTable 新建表，columnSpecs 为 name:type 形式的列声明，
// ID 列自动添加在首位。只写元数据，表数据文件在首次插入时才出现
func (db *DB) CreateTable(ctx context.Context, table string, columnSpecs []string) (schema.Table, error) {
	table = strings.TrimSpace(table)

	md, err := db.storage.LoadMetadata(ctx)
	if err != nil {
		return schema.Table{}, errors.WithMessage(err, "storage.LoadMetadata failed")
	}

	next, err := schema.CreateTable(md, table, columnSpecs)
	if err != nil {
		return schema.Table{}, err
	}

	if err := db.storage.SaveMetadata(ctx, next); err != nil {
		return schema.Table{}, errors.WithMessage(err, "storage.SaveMetadata failed")
	}

	return next[table], nil
}

// DropTable 删除表结构和表数据
func (db *DB) DropTable(ctx context.Context, table string) error {
	table = strings.TrimSpace(table)

	md, err := db.storage.LoadMetadata(ctx)
	if err != nil {
		return errors.WithMessage(err, "storage.LoadMetadata failed")
	}

	next, err := schema.DropTable(md, table)
	if err != nil {
		return err
	}

	if err := db.storage.SaveMetadata(ctx, next); err != nil {
		return errors.WithMessage(err, "storage.SaveMetadata failed")
	}

	if err := db.storage.DropTable(ctx, table); err != nil {
		return errors.WithMessage(err, "storage.DropTable failed")
	}

	return nil
}

// ListTables 返回排序后的表名列表
func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	md, err := db.storage.LoadMetadata(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "storage.LoadMetadata failed")
	}

	return schema.ListTables(md), nil
}

// Insert 插入一行，valuesInner 为 values(...) 括号内的原始文本。
// 返回新行的自增 ID
func (db *DB) Insert(ctx context.Context, table string, valuesInner string) (int64, error) {
	table = strings.TrimSpace(table)

	t, err := db.tableSchema(ctx, table)
	if err != nil {
		return 0, err
	}

	rows, err := db.storage.LoadRows(ctx, table)
	if err != nil {
		return 0, errors.WithMessage(err, "storage.LoadRows failed")
	}

	next, id, err := engine.Insert(t, rows, parser.ParseValues(valuesInner))
	if err != nil {
		return 0, err
	}

	if err := db.storage.SaveRows(ctx, table, next); err != nil {
		return 0, errors.WithMessage(err, "storage.SaveRows failed")
	}

	return id, nil
}

// Select 按条件查询，whereExpr 为空时返回全部行。
// 返回表结构供调用方按列序渲染
func (db *DB) Select(ctx context.Context, table string, whereExpr string) (schema.Table, []engine.Row, error) {
	table = strings.TrimSpace(table)

	t, err := db.tableSchema(ctx, table)
	if err != nil {
		return schema.Table{}, nil, err
	}

	rows, err := db.storage.LoadRows(ctx, table)
	if err != nil {
		return schema.Table{}, nil, errors.WithMessage(err, "storage.LoadRows failed")
	}

	filter, err := parseFilter(whereExpr)
	if err != nil {
		return schema.Table{}, nil, err
	}

	return t, engine.Select(rows, filter), nil
}

// Update 按条件更新行，set 子句整体校验，任何一项非法则不触碰任何行。
// 返回更新的行数
func (db *DB) Update(ctx context.Context, table string, setExpr string, whereExpr string) (int64, error) {
	table = strings.TrimSpace(table)

	t, err := db.tableSchema(ctx, table)
	if err != nil {
		return 0, err
	}

	rows, err := db.storage.LoadRows(ctx, table)
	if err != nil {
		return 0, errors.WithMessage(err, "storage.LoadRows failed")
	}

	set, err := parser.ParseSet(setExpr)
	if err != nil {
		return 0, err
	}

	filter, err := parseFilter(whereExpr)
	if err != nil {
		return 0, err
	}

	next, updated, err := engine.Update(t, rows, set, filter)
	if err != nil {
		return 0, err
	}

	if err := db.storage.SaveRows(ctx, table, next); err != nil {
		return 0, errors.WithMessage(err, "storage.SaveRows failed")
	}

	return updated, nil
}

// Delete 按条件删除行，返回删除的行数
func (db *DB) Delete(ctx context.Context, table string, whereExpr string) (int64, error) {
	table = strings.TrimSpace(table)

	if _, err := db.tableSchema(ctx, table); err != nil {
		return 0, err
	}

	rows, err := db.storage.LoadRows(ctx, table)
	if err != nil {
		return 0, errors.WithMessage(err, "storage.LoadRows failed")
	}

	filter, err := parseFilter(whereExpr)
	if err != nil {
		return 0, err
	}

	next, deleted, err := engine.Delete(rows, filter)
	if err != nil {
		return 0, err
	}

	if err := db.storage.SaveRows(ctx, table, next); err != nil {
		return 0, errors.WithMessage(err, "storage.SaveRows failed")
	}

	return deleted, nil
}

// TableSchema 返回表结构，表不存在时返回 ErrTableDoesNotExist，
// 结构损坏时返回 ErrTableSchema
func (db *DB) TableSchema(ctx context.Context, table string) (schema.Table, error) {
	return db.tableSchema(ctx, strings.TrimSpace(table))
}

// Describe 返回表结构摘要和行数
func (db *DB) Describe(ctx context.Context, table string) (schema.TableInfo, error) {
	table = strings.TrimSpace(table)

	md, err := db.storage.LoadMetadata(ctx)
	if err != nil {
		return schema.TableInfo{}, errors.WithMessage(err, "storage.LoadMetadata failed")
	}

	rows, err := db.storage.LoadRows(ctx, table)
	if err != nil {
		return schema.TableInfo{}, errors.WithMessage(err, "storage.LoadRows failed")
	}

	return schema.Describe(md, table, len(rows))
}

// ModTime 返回表数据的最后修改时间，存储后端不支持时返回 false。
// 查询缓存用它做失效判断
func (db *DB) ModTime(table string) (time.Time, bool) {
	if mt, ok := db.storage.(storage.ModTimer); ok {
		return mt.ModTime(table)
	}
	return time.Time{}, false
}

func (db *DB) Close() error {
	if db.storage == nil {
		return nil
	}

	err := db.storage.Close()
	db.storage = nil
	return err
}

// tableSchema 加载并校验表结构，表不存在或结构损坏时报错
func (db *DB) tableSchema(ctx context.Context, table string) (schema.Table, error) {
	md, err := db.storage.LoadMetadata(ctx)
	if err != nil {
		return schema.Table{}, errors.WithMessage(err, "storage.LoadMetadata failed")
	}

	t, exists := md[table]
	if !exists {
		return schema.Table{}, errors.Wrapf(schema.ErrTableDoesNotExist, "table %q", table)
	}
	if len(t.Columns) == 0 {
		return schema.Table{}, errors.Wrapf(schema.ErrTableSchema, "table %q has no columns", table)
	}

	return t, nil
}

// parseFilter 解析 where 表达式，空表达式表示不过滤
func parseFilter(whereExpr string) (*engine.Filter, error) {
	if whereExpr == "" {
		return nil, nil
	}

	clause, err := parser.ParseWhere(whereExpr)
	if err != nil {
		return nil, err
	}

	return engine.NewFilter(clause)
}
