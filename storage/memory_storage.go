package storage

import (
	"context"
	"time"

	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
)

// MemoryStorage 内存存储，数据出入均做深拷贝，用于测试和一次性运行
type MemoryStorage struct {
	metadata schema.Metadata
	tables   map[string][]engine.Row
	modTimes map[string]time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		metadata: schema.Metadata{},
		tables:   map[string][]engine.Row{},
		modTimes: map[string]time.Time{},
	}
}

func copyMetadata(md schema.Metadata) schema.Metadata {
	clone := make(schema.Metadata, len(md))
	for name, table := range md {
		columns := make([]schema.Column, len(table.Columns))
		copy(columns, table.Columns)
		clone[name] = schema.Table{Columns: columns}
	}
	return clone
}

func (s *MemoryStorage) LoadMetadata(ctx context.Context) (schema.Metadata, error) {
	return copyMetadata(s.metadata), nil
}

func (s *MemoryStorage) SaveMetadata(ctx context.Context, md schema.Metadata) error {
	s.metadata = copyMetadata(md)
	return nil
}

func (s *MemoryStorage) LoadRows(ctx context.Context, table string) ([]engine.Row, error) {
	rows, exists := s.tables[table]
	if !exists {
		return []engine.Row{}, nil
	}
	return engine.CloneRows(rows), nil
}

func (s *MemoryStorage) SaveRows(ctx context.Context, table string, rows []engine.Row) error {
	s.tables[table] = engine.CloneRows(rows)
	s.modTimes[table] = time.Now()
	return nil
}

func (s *MemoryStorage) DropTable(ctx context.Context, table string) error {
	delete(s.tables, table)
	delete(s.modTimes, table)
	return nil
}

func (s *MemoryStorage) ModTime(table string) (time.Time, bool) {
	t, exists := s.modTimes[table]
	return t, exists
}

func (s *MemoryStorage) Close() error {
	s.metadata = nil
	s.tables = nil
	s.modTimes = nil
	return nil
}

var _ Storage = (*MemoryStorage)(nil)
var _ ModTimer = (*MemoryStorage)(nil)
