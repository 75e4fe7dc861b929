package storage

import (
	"context"

	"github.com/cockroachdb/pebble"
	"github.com/hatlonely/minidb/codec"
	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
)

type PebbleStorageOptions struct {
	// DBPath 数据库目录路径，不存在时自动创建
	DBPath string `cfg:"dbPath" validate:"required"`

	// CacheSize 块缓存大小（字节），零值使用 pebble 默认值
	CacheSize int64 `cfg:"cacheSize"`

	// MemTableSize memtable 刷盘前的最大大小（字节）
	MemTableSize uint64 `cfg:"memTableSize"`

	// DisableWAL 禁用预写日志，崩溃时可能丢数据
	DisableWAL bool `cfg:"disableWAL"`

	// NoSync 写入不等待刷盘完成
	NoSync bool `cfg:"noSync"`

	// ReadOnly 以只读模式打开数据库
	ReadOnly bool `cfg:"readOnly"`

	// Codec 存储值的编码格式
	Codec codec.CodecOptions `cfg:"codec"`
}

const (
	pebbleMetadataKey = "m:metadata"
	pebbleTablePrefix = "t:"
)

// PebbleStorage pebble 存储，键布局与 leveldb 后端一致
type PebbleStorage struct {
	db        *pebble.DB
	codec     codec.Codec
	writeOpts *pebble.WriteOptions
}

func NewPebbleStorageWithOptions(options *PebbleStorageOptions) (*PebbleStorage, error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}

	c, err := codec.NewCodecWithOptions(&options.Codec)
	if err != nil {
		return nil, errors.WithMessage(err, "codec.NewCodecWithOptions failed")
	}

	pebbleOptions := &pebble.Options{
		MemTableSize: options.MemTableSize,
		DisableWAL:   options.DisableWAL,
		ReadOnly:     options.ReadOnly,
	}
	if options.CacheSize > 0 {
		cache := pebble.NewCache(options.CacheSize)
		// Open 之后数据库持有自己的引用
		defer cache.Unref()
		pebbleOptions.Cache = cache
	}

	db, err := pebble.Open(options.DBPath, pebbleOptions)
	if err != nil {
		return nil, errors.Wrapf(err, "pebble.Open failed. dbPath: %s", options.DBPath)
	}

	writeOpts := pebble.Sync
	if options.NoSync {
		writeOpts = pebble.NoSync
	}

	return &PebbleStorage{db: db, codec: c, writeOpts: writeOpts}, nil
}

func (s *PebbleStorage) get(key string) ([]byte, error) {
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "pebble get failed")
	}

	// 复制数据，closer 关闭后 value 失效
	data := make([]byte, len(value))
	copy(data, value)
	if err := closer.Close(); err != nil {
		return nil, errors.Wrap(err, "closer.Close failed")
	}
	return data, nil
}

func (s *PebbleStorage) LoadMetadata(ctx context.Context) (schema.Metadata, error) {
	data, err := s.get(pebbleMetadataKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return schema.Metadata{}, nil
	}

	md, err := s.codec.UnmarshalMetadata(data)
	if err != nil || md == nil {
		return schema.Metadata{}, nil
	}
	return md, nil
}

func (s *PebbleStorage) SaveMetadata(ctx context.Context, md schema.Metadata) error {
	if md == nil {
		md = schema.Metadata{}
	}

	data, err := s.codec.MarshalMetadata(md)
	if err != nil {
		return errors.Wrap(err, "marshal metadata failed")
	}
	return s.db.Set([]byte(pebbleMetadataKey), data, s.writeOpts)
}

func (s *PebbleStorage) LoadRows(ctx context.Context, table string) ([]engine.Row, error) {
	data, err := s.get(pebbleTablePrefix + table)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []engine.Row{}, nil
	}

	rows, err := s.codec.UnmarshalRows(data)
	if err != nil || rows == nil {
		return []engine.Row{}, nil
	}
	return rows, nil
}

func (s *PebbleStorage) SaveRows(ctx context.Context, table string, rows []engine.Row) error {
	data, err := s.codec.MarshalRows(rows)
	if err != nil {
		return errors.Wrapf(err, "marshal rows failed. table: %s", table)
	}
	return s.db.Set([]byte(pebbleTablePrefix+table), data, s.writeOpts)
}

func (s *PebbleStorage) DropTable(ctx context.Context, table string) error {
	return s.db.Delete([]byte(pebbleTablePrefix+table), s.writeOpts)
}

func (s *PebbleStorage) Close() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close database failed")
	}
	s.db = nil
	return nil
}

var _ Storage = (*PebbleStorage)(nil)
