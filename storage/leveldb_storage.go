package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/hatlonely/minidb/codec"
	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

type LevelDBStorageOptions struct {
	// DBPath 数据库目录路径，不存在时自动创建
	DBPath string `cfg:"dbPath" validate:"required"`

	// BlockCacheCapacity 'sorted table' 块缓存的容量。
	//
	// 默认值是 8MiB
	BlockCacheCapacity int `cfg:"blockCacheCapacity"`

	// Compression 'sorted table' 块压缩使用的压缩算法。
	//
	// 默认值（default）使用 snappy 压缩
	Compression string `cfg:"compression" validate:"omitempty,oneof=default snappy none"`

	// WriteBuffer 'memdb' 在刷新到 'sorted table' 之前的最大大小。
	//
	// 默认值是 4MiB
	WriteBuffer int `cfg:"writeBuffer"`

	// NoSync 完全禁用 fsync
	NoSync bool `cfg:"noSync"`

	// ReadOnly 以只读模式打开数据库
	ReadOnly bool `cfg:"readOnly"`

	// Codec 存储值的编码格式
	Codec codec.CodecOptions `cfg:"codec"`
}

func leveldbParseCompression(compression string) (opt.Compression, error) {
	switch compression {
	case "", "default":
		return opt.DefaultCompression, nil
	case "snappy":
		return opt.SnappyCompression, nil
	case "none":
		return opt.NoCompression, nil
	}
	return opt.DefaultCompression, errors.Errorf("unsupported compression [%s]", compression)
}

const (
	leveldbMetadataKey = "m:metadata"
	leveldbTablePrefix = "t:"
)

// LevelDBStorage goleveldb 存储，元数据和表数据按键前缀区分
type LevelDBStorage struct {
	db    *leveldb.DB
	codec codec.Codec
}

func NewLevelDBStorageWithOptions(options *LevelDBStorageOptions) (*LevelDBStorage, error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}

	c, err := codec.NewCodecWithOptions(&options.Codec)
	if err != nil {
		return nil, errors.WithMessage(err, "codec.NewCodecWithOptions failed")
	}

	compression, err := leveldbParseCompression(options.Compression)
	if err != nil {
		return nil, errors.WithMessage(err, "leveldbParseCompression failed")
	}

	db, err := leveldb.OpenFile(options.DBPath, &opt.Options{
		BlockCacheCapacity: options.BlockCacheCapacity,
		Compression:        compression,
		WriteBuffer:        options.WriteBuffer,
		NoSync:             options.NoSync,
		ReadOnly:           options.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "leveldb.OpenFile failed. dbPath: %s", options.DBPath)
	}

	return &LevelDBStorage{db: db, codec: c}, nil
}

func (s *LevelDBStorage) LoadMetadata(ctx context.Context) (schema.Metadata, error) {
	data, err := s.db.Get([]byte(leveldbMetadataKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return schema.Metadata{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "leveldb get failed")
	}

	md, err := s.codec.UnmarshalMetadata(data)
	if err != nil || md == nil {
		return schema.Metadata{}, nil
	}
	return md, nil
}

func (s *LevelDBStorage) SaveMetadata(ctx context.Context, md schema.Metadata) error {
	if md == nil {
		md = schema.Metadata{}
	}

	data, err := s.codec.MarshalMetadata(md)
	if err != nil {
		return errors.Wrap(err, "marshal metadata failed")
	}
	return s.db.Put([]byte(leveldbMetadataKey), data, nil)
}

func (s *LevelDBStorage) LoadRows(ctx context.Context, table string) ([]engine.Row, error) {
	data, err := s.db.Get([]byte(leveldbTablePrefix+table), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return []engine.Row{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "leveldb get failed")
	}

	rows, err := s.codec.UnmarshalRows(data)
	if err != nil || rows == nil {
		return []engine.Row{}, nil
	}
	return rows, nil
}

func (s *LevelDBStorage) SaveRows(ctx context.Context, table string, rows []engine.Row) error {
	data, err := s.codec.MarshalRows(rows)
	if err != nil {
		return errors.Wrapf(err, "marshal rows failed. table: %s", table)
	}
	return s.db.Put([]byte(leveldbTablePrefix+table), data, nil)
}

func (s *LevelDBStorage) DropTable(ctx context.Context, table string) error {
	return s.db.Delete([]byte(leveldbTablePrefix+table), nil)
}

func (s *LevelDBStorage) Close() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close database failed")
	}
	s.db = nil
	return nil
}

var _ Storage = (*LevelDBStorage)(nil)
