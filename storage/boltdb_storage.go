package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/hatlonely/minidb/codec"
	"github.com/hatlonely/minidb/engine"
	"github.com/hatlonely/minidb/schema"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

type BoltDBStorageOptions struct {
	// DBPath 数据库文件路径，不存在时自动创建
	DBPath string `cfg:"dbPath" validate:"required"`

	// Timeout 获取文件锁的等待时间，零值无限期等待
	Timeout time.Duration `cfg:"timeout"`

	// NoSync 不在每次提交后刷盘，提高写入性能，崩溃时可能丢数据
	NoSync bool `cfg:"noSync"`

	// FreelistType 后端 freelist 类型。
	// array 简单，库大且碎片多时性能急剧下降；hashmap 几乎所有场景更快。
	// 默认 array
	FreelistType string `cfg:"freelistType" validate:"omitempty,oneof=array hashmap"`

	// Codec 存储值的编码格式
	Codec codec.CodecOptions `cfg:"codec"`
}

var (
	boltMetaBucket   = []byte("meta")
	boltTablesBucket = []byte("tables")
	boltMetadataKey  = []byte("metadata")
)

// BoltDBStorage 单文件 BoltDB 存储，元数据和表数据分桶保存
type BoltDBStorage struct {
	db    *bolt.DB
	codec codec.Codec
}

func NewBoltDBStorageWithOptions(options *BoltDBStorageOptions) (*BoltDBStorage, error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}

	c, err := codec.NewCodecWithOptions(&options.Codec)
	if err != nil {
		return nil, errors.WithMessage(err, "codec.NewCodecWithOptions failed")
	}

	directory := filepath.Dir(options.DBPath)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", directory)
	}

	db, err := bolt.Open(options.DBPath, 0600, &bolt.Options{
		Timeout:      options.Timeout,
		NoSync:       options.NoSync,
		FreelistType: bolt.FreelistType(options.FreelistType),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt.Open failed. dbPath: %s", options.DBPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(boltMetaBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(boltTablesBucket)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "create bucket failed")
	}

	return &BoltDBStorage{db: db, codec: c}, nil
}

func (s *BoltDBStorage) get(bucketName, key []byte) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get(key); v != nil {
			// 复制数据，BoltDB 会重用内存
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	return data, err
}

func (s *BoltDBStorage) put(bucketName, key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}
		return bucket.Put(key, value)
	})
}

func (s *BoltDBStorage) LoadMetadata(ctx context.Context) (schema.Metadata, error) {
	data, err := s.get(boltMetaBucket, boltMetadataKey)
	if err != nil {
		return nil, errors.Wrap(err, "bolt view failed")
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

func (s *BoltDBStorage) SaveMetadata(ctx context.Context, md schema.Metadata) error {
	if md == nil {
		md = schema.Metadata{}
	}

	data, err := s.codec.MarshalMetadata(md)
	if err != nil {
		return errors.Wrap(err, "marshal metadata failed")
	}
	return s.put(boltMetaBucket, boltMetadataKey, data)
}

func (s *BoltDBStorage) LoadRows(ctx context.Context, table string) ([]engine.Row, error) {
	data, err := s.get(boltTablesBucket, []byte(table))
	if err != nil {
		return nil, errors.Wrap(err, "bolt view failed")
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

func (s *BoltDBStorage) SaveRows(ctx context.Context, table string, rows []engine.Row) error {
	data, err := s.codec.MarshalRows(rows)
	if err != nil {
		return errors.Wrapf(err, "marshal rows failed. table: %s", table)
	}
	return s.put(boltTablesBucket, []byte(table), data)
}

func (s *BoltDBStorage) DropTable(ctx context.Context, table string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltTablesBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(table))
	})
}

func (s *BoltDBStorage) Close() error {
	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close database failed")
	}
	// 标记已关闭，防止重复关闭
	s.db = nil
	return nil
}

var _ Storage = (*BoltDBStorage)(nil)
